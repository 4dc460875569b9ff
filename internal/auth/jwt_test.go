package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestGenerateAndValidate тестирует выпуск и проверку токена
func TestGenerateAndValidate(t *testing.T) {
	issuer, err := NewIssuer(GenerateSecureSecret(), time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания издателя: %v", err)
	}

	token, err := issuer.Generate("builder", RoleEditor)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	// Проверяем, что токен содержит точки (разделители частей JWT)
	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Валидный токен определен как недействительный: %v", err)
	}
	if claims.Operator != "builder" || !claims.CanEdit() {
		t.Errorf("Неверные claims: %+v", claims)
	}
}

// TestValidateRejects тестирует отказ для чужих, испорченных и просроченных токенов
func TestValidateRejects(t *testing.T) {
	issuer, _ := NewIssuer("", time.Hour)
	other, _ := NewIssuer("", time.Hour)

	token, err := other.Generate("stranger", RoleViewer)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}
	if _, err := issuer.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Токен с чужой подписью принят: %v", err)
	}

	if _, err := issuer.Validate("invalid.token.here"); err == nil {
		t.Error("Испорченный токен принят")
	}

	expired := &Issuer{secret: issuer.secret, ttl: -time.Minute}
	token, _ = expired.Generate("late", RoleViewer)
	if _, err := issuer.Validate(token); !errors.Is(err, ErrTokenExpired) || !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Просроченный токен должен дать ErrTokenExpired: %v", err)
	}

	viewer, _ := issuer.Generate("reader", RoleViewer)
	claims, err := issuer.Validate(viewer)
	if err != nil || claims.CanEdit() {
		t.Errorf("Наблюдатель не должен иметь права правки: %+v, %v", claims, err)
	}
	if !claims.Allows(RoleViewer) || claims.Allows(RoleEditor) || claims.Allows("admin") {
		t.Errorf("Неверная проверка ролей наблюдателя: %+v", claims)
	}
	editorClaims := &Claims{Role: RoleEditor}
	if !editorClaims.Allows(RoleViewer) || !editorClaims.Allows(RoleEditor) {
		t.Error("Редактор должен иметь права наблюдателя")
	}
}

// TestNewIssuerSecret тестирует проверку секрета
func TestNewIssuerSecret(t *testing.T) {
	if _, err := NewIssuer("не base64!", time.Hour); err == nil {
		t.Error("Ожидалась ошибка для некорректного base64")
	}

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := NewIssuer(short, time.Hour); err == nil {
		t.Error("Ожидалась ошибка для короткого секрета")
	}

	if _, err := NewIssuer("", 0); err != nil {
		t.Errorf("Пустой секрет должен давать случайный ключ: %v", err)
	}

	issuer, _ := NewIssuer("", time.Hour)
	if _, err := issuer.Generate("x", Role("root")); err == nil {
		t.Error("Неизвестная роль должна отклоняться")
	}
}
