package util

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// ============ 密码哈希测试 ============

func TestHashPassword(t *testing.T) {
	password := "MyPassword123"

	hashed, err := HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("哈希失败: %v", err)
	}
	if !strings.Contains(hashed, "$") {
		t.Error("哈希格式错误，应包含 $")
	}

	// 空密码应返回错误
	if _, err = HashPassword("", bcrypt.MinCost); err == nil {
		t.Error("空密码应返回错误")
	}

	// 相同密码生成不同哈希（随机salt）
	hashed2, _ := HashPassword(password, bcrypt.MinCost)
	if hashed == hashed2 {
		t.Error("相同密码应生成不同哈希")
	}

	// cost <= 0 falls back to the default cost
	if _, err = HashPassword(password, 0); err != nil {
		t.Errorf("cost 0 应回退默认值: %v", err)
	}
}

func TestCheckPassword(t *testing.T) {
	password := "TestPass456"
	hashed, _ := HashPassword(password, bcrypt.MinCost)

	if !CheckPassword(password, hashed) {
		t.Error("正确密码验证失败")
	}
	if CheckPassword("WrongPass", hashed) {
		t.Error("错误密码不应通过验证")
	}
	if CheckPassword("", hashed) {
		t.Error("空密码不应通过验证")
	}
	if CheckPassword(password, "") {
		t.Error("空哈希不应通过验证")
	}
	if CheckPassword(password, "invalid-format") {
		t.Error("无效格式不应通过验证")
	}
}
