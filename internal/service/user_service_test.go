package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
)

func setupTestUserService() (UserService, *mockUserRepo) {
	repo, mocks := newMockRepository()
	return NewUserService(repo, testLoc, zap.NewNop()), mocks.User
}

func intPtr(v int) *int { return &v }

// ── CreateUser ──

func TestCreateUser_TempPassword(t *testing.T) {
	svc, userRepo := setupTestUserService()

	resp, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Username: "bob",
		Name:     "鲍勃",
	})
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if len(resp.TempPassword) != 10 {
		t.Errorf("期望生成 10 位临时密码，实际 %q", resp.TempPassword)
	}
	if resp.User.Role != int(model.RoleBasic) {
		t.Errorf("未指定角色时应默认 BASIC，实际 %d", resp.User.Role)
	}

	stored := userRepo.users["bob"]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(resp.TempPassword)); err != nil {
		t.Error("存储的哈希应与临时密码匹配")
	}
}

func TestCreateUser_ExplicitPasswordAndRole(t *testing.T) {
	svc, _ := setupTestUserService()

	resp, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{
		Username: "carol",
		Name:     "卡罗尔",
		Role:     intPtr(int(model.RoleAdvanced)),
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if resp.TempPassword != "" {
		t.Error("指定密码时不应返回临时密码")
	}
	if resp.User.RoleName != "ADVANCED" {
		t.Errorf("期望 ADVANCED，实际 %s", resp.User.RoleName)
	}
}

func TestCreateUser_Errors(t *testing.T) {
	svc, userRepo := setupTestUserService()
	createTestUser(userRepo, "alice", "password123", model.RoleBasic)

	_, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{Username: "alice", Name: "重复"})
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("期望 ErrUsernameExists，实际 %v", err)
	}

	_, err = svc.CreateUser(context.Background(), &dto.CreateUserRequest{Username: "dave", Name: "戴夫", Role: intPtr(7)})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("期望 ErrInvalidRole，实际 %v", err)
	}
}

// ── SetRole ──

func TestSetRole(t *testing.T) {
	svc, userRepo := setupTestUserService()
	createTestUser(userRepo, "alice", "password123", model.RoleBasic)
	createTestUser(userRepo, "admin", "password123", model.RoleAdmin)
	ctx := context.Background()

	resp, err := svc.SetRole(ctx, "alice", model.RoleBlocked, "admin")
	if err != nil {
		t.Fatalf("SetRole 应成功: %v", err)
	}
	if resp.Role != int(model.RoleBlocked) || userRepo.users["alice"].Role != model.RoleBlocked {
		t.Errorf("期望 alice 被封禁，实际 %d", resp.Role)
	}

	if _, err := svc.SetRole(ctx, "admin", model.RoleBasic, "admin"); !errors.Is(err, ErrUserSelfRoleChange) {
		t.Errorf("期望 ErrUserSelfRoleChange，实际 %v", err)
	}
	if _, err := svc.SetRole(ctx, "alice", model.Role(9), "admin"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("期望 ErrInvalidRole，实际 %v", err)
	}
	if _, err := svc.SetRole(ctx, "nobody", model.RoleBasic, "admin"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际 %v", err)
	}
}

// ── UpdateProfile ──

func TestUpdateProfile(t *testing.T) {
	svc, userRepo := setupTestUserService()
	createTestUser(userRepo, "alice", "password123", model.RoleBasic)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *dto.UpdateUserRequest
		wantErr error
	}{
		{"空请求", &dto.UpdateUserRequest{}, ErrNothingToUpdate},
		{"只给新密码", &dto.UpdateUserRequest{NewPassword: strPtr("newpassword1")}, ErrPasswordIncomplete},
		{"原密码错误", &dto.UpdateUserRequest{Password: strPtr("wrong"), NewPassword: strPtr("newpassword1")}, ErrPasswordMismatch},
		{"新密码过短", &dto.UpdateUserRequest{Password: strPtr("password123"), NewPassword: strPtr("short")}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateProfile(ctx, "alice", tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际 %v", tt.wantErr, err)
			}
		})
	}

	resp, err := svc.UpdateProfile(ctx, "alice", &dto.UpdateUserRequest{
		Email:       strPtr(" alice@new.example.com "),
		Password:    strPtr("password123"),
		NewPassword: strPtr("newpassword1"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile 应成功: %v", err)
	}
	if resp.Email != "alice@new.example.com" {
		t.Errorf("邮箱应去除首尾空白，实际 %q", resp.Email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userRepo.users["alice"].PasswordHash), []byte("newpassword1")); err != nil {
		t.Error("新密码应生效")
	}
}

// ── ResetPassword / EnsureAdmin ──

func TestResetPassword(t *testing.T) {
	svc, userRepo := setupTestUserService()
	createTestUser(userRepo, "alice", "password123", model.RoleBasic)

	resp, err := svc.ResetPassword(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ResetPassword 应成功: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userRepo.users["alice"].PasswordHash), []byte(resp.TempPassword)); err != nil {
		t.Error("重置后的临时密码应可登录")
	}
}

func TestEnsureAdmin(t *testing.T) {
	svc, userRepo := setupTestUserService()
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "admin", ""); err != nil || len(userRepo.users) != 0 {
		t.Fatalf("未配置密码时应跳过，err=%v users=%d", err, len(userRepo.users))
	}
	if err := svc.EnsureAdmin(ctx, "admin", "admin-password"); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}
	if userRepo.users["admin"].Role != model.RoleAdmin {
		t.Error("创建的账号应为 ADMIN")
	}
	// 已存在时不覆盖
	hash := userRepo.users["admin"].PasswordHash
	if err := svc.EnsureAdmin(ctx, "admin", "other-password"); err != nil {
		t.Fatalf("重复调用应成功: %v", err)
	}
	if userRepo.users["admin"].PasswordHash != hash {
		t.Error("已存在的管理员密码不应被覆盖")
	}
}

// ── Import ──

func buildImportFile(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatalf("写入测试 Excel 失败: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("生成测试 Excel 失败: %v", err)
	}
	return buf
}

func TestParseImportFile(t *testing.T) {
	svc, _ := setupTestUserService()

	buf := buildImportFile(t, [][]any{
		{"姓名", "用户名", "角色"},
		{"张三", "zhangsan", "ADVANCED"},
		{"", "", ""},
		{"李四", "lisi", ""},
	})
	rows, err := svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("ParseImportFile 应成功: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望跳过空行后 2 行，实际 %d", len(rows))
	}
	if rows[0].Username != "zhangsan" || rows[0].Name != "张三" || rows[0].Role != "ADVANCED" {
		t.Errorf("列序应按表头识别，实际 %+v", rows[0])
	}
	if rows[1].Row != 4 {
		t.Errorf("行号应对应 Excel 行，实际 %d", rows[1].Row)
	}
}

func TestParseImportFile_BadHeader(t *testing.T) {
	svc, _ := setupTestUserService()

	buf := buildImportFile(t, [][]any{
		{"邮箱", "角色"},
		{"a@example.com", "1"},
	})
	if _, err := svc.ParseImportFile(buf); !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("期望 ErrImportBadHeader，实际 %v", err)
	}
}

func TestImportUsers(t *testing.T) {
	svc, userRepo := setupTestUserService()
	createTestUser(userRepo, "alice", "password123", model.RoleBasic)

	resp, err := svc.ImportUsers(context.Background(), []ImportUserRow{
		{Row: 2, Username: "zhangsan", Name: "张三", Role: "2"},
		{Row: 3, Username: "alice", Name: "已存在"},
		{Row: 4, Username: "zhangsan", Name: "重复"},
		{Row: 5, Username: "wangwu", Name: "王五", Role: "SUPER"},
		{Row: 6, Username: "lisi", Name: "李四"},
	})
	if err != nil {
		t.Fatalf("ImportUsers 应成功: %v", err)
	}
	if resp.Total != 5 || resp.Success != 2 || resp.Failed != 3 {
		t.Errorf("期望 total=5 success=2 failed=3，实际 %+v", resp)
	}
	if userRepo.users["zhangsan"].Role != model.RoleAdvanced {
		t.Errorf("数值角色应被识别，实际 %d", userRepo.users["zhangsan"].Role)
	}
	pwd, ok := resp.Passwords["lisi"]
	if !ok {
		t.Fatal("应返回新用户临时密码")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userRepo.users["lisi"].PasswordHash), []byte(pwd)); err != nil {
		t.Error("临时密码应与存储哈希匹配")
	}
}
