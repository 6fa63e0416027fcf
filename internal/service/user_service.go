package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"resv-system/backend/internal/dto"
	"resv-system/backend/internal/model"
	"resv-system/backend/internal/repository"
	pkgerrors "resv-system/backend/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUsernameExists     = errors.New("用户名已存在")
	ErrUserSelfRoleChange = errors.New("不能修改自己的角色")
	ErrInvalidRole        = errors.New("无效的角色")
	ErrPasswordMismatch   = errors.New("原密码错误")
	ErrPasswordIncomplete = errors.New("修改密码需同时提供 password 与 new_password")
	ErrWeakPassword       = errors.New("新密码长度至少 8 位")
)

const minPasswordLen = 8

// UserService 用户业务接口
type UserService interface {
	GetProfile(ctx context.Context, username string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, username string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	ListBrief(ctx context.Context, q *dto.UserListQuery) ([]dto.UserBrief, error)

	// ── 管理员 ──
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error)
	SetRole(ctx context.Context, username string, role model.Role, caller string) (*dto.UserResponse, error)
	ResetPassword(ctx context.Context, username string) (*dto.CreateUserResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error)

	// EnsureAdmin 启动时确保管理员账号存在；password 为空时跳过
	EnsureAdmin(ctx context.Context, username, password string) error
}

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row      int
	Username string
	Name     string
	Email    string
	Role     string
}

type userService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) UserService {
	return &userService{repo: repo, loc: loc, logger: logger}
}

// ────────────────────── Profile ──────────────────────

func (s *userService) GetProfile(ctx context.Context, username string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user, s.loc)
	return &resp, nil
}

func (s *userService) UpdateProfile(ctx context.Context, username string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if req.Email == nil && req.Password == nil && req.NewPassword == nil {
		return nil, ErrNothingToUpdate
	}
	if (req.Password == nil) != (req.NewPassword == nil) {
		return nil, ErrPasswordIncomplete
	}

	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.NewPassword != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.Password)); err != nil {
			return nil, ErrPasswordMismatch
		}
		if len(*req.NewPassword) < minPasswordLen {
			return nil, ErrWeakPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user, s.loc)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) ListBrief(ctx context.Context, q *dto.UserListQuery) ([]dto.UserBrief, error) {
	users, err := s.repo.User.List(ctx, repository.UserFilter{Username: q.Username, Name: q.Name})
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.UserBrief, 0, len(users))
	for _, u := range users {
		result = append(result, dto.UserBrief{Username: u.Username, Name: u.Name})
	}
	return result, nil
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	role := model.RoleBasic
	if req.Role != nil {
		role = model.Role(*req.Role)
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
	}

	// 检查用户名唯一性
	if _, err := s.repo.User.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 未指定密码时生成临时密码，仅在响应中返回一次
	password := req.Password
	var tempPassword string
	if password == "" {
		var err error
		if tempPassword, err = generateTempPassword(10); err != nil {
			s.logger.Error("生成临时密码失败", zap.Error(err))
			return nil, err
		}
		password = tempPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if pkgerrors.IsConstraintViolation(err) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("管理员创建用户", zap.String("username", user.Username), zap.String("role", role.String()))
	return &dto.CreateUserResponse{
		User:         toUserResponse(user, s.loc),
		TempPassword: tempPassword,
	}, nil
}

// ────────────────────── SetRole ──────────────────────

func (s *userService) SetRole(ctx context.Context, username string, role model.Role, caller string) (*dto.UserResponse, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if username == caller {
		return nil, ErrUserSelfRoleChange
	}

	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("设置角色失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户角色已变更",
		zap.String("username", username),
		zap.String("role", role.String()),
		zap.String("by", caller),
	)
	resp := toUserResponse(user, s.loc)
	return &resp, nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, username string) (*dto.CreateUserResponse, error) {
	user, err := s.getUser(ctx, username)
	if err != nil {
		return nil, err
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user.PasswordHash = string(hash)
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("重置密码失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	return &dto.CreateUserResponse{
		User:         toUserResponse(user, s.loc),
		TempPassword: tempPassword,
	}, nil
}

// ────────────────────── EnsureAdmin ──────────────────────

func (s *userService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		s.logger.Info("未配置管理员密码，跳过创建管理员")
		return nil
	}

	if _, err := s.repo.User.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username:     username,
		Name:         "管理员",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		// 多实例同时启动时可能已被其他实例创建
		if pkgerrors.IsConstraintViolation(err) {
			return nil
		}
		return err
	}

	s.logger.Info("已创建管理员账号", zap.String("username", username))
	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（用户名/姓名）")
)

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["username"] < 0 || colIndex["name"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, key string) string {
		idx := colIndex[key]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		item := ImportUserRow{
			Row:      i + 1,
			Username: cellAt(excelRows[i], "username"),
			Name:     cellAt(excelRows[i], "name"),
			Email:    cellAt(excelRows[i], "email"),
			Role:     cellAt(excelRows[i], "role"),
		}
		// 跳过全空行
		if item.Username == "" && item.Name == "" && item.Email == "" && item.Role == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"username": -1,
		"name":     -1,
		"email":    -1,
		"role":     -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "用户名", "username":
			idx["username"] = i
		case "姓名", "name":
			idx["name"] = i
		case "邮箱", "email":
			idx["email"] = i
		case "角色", "role":
			idx["role"] = i
		}
	}
	return idx
}

// parseRoleCell 角色列可填名称（BASIC）或数值（1），为空时默认 BASIC
func parseRoleCell(v string) (model.Role, bool) {
	if v == "" {
		return model.RoleBasic, true
	}
	for _, e := range model.RoleCatalog() {
		if strings.EqualFold(v, e.Name) || v == fmt.Sprint(e.Value) {
			return model.Role(e.Value), true
		}
	}
	return 0, false
}

// ────────────────────── ImportUsers ──────────────────────

func (s *userService) ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows)}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row  ImportUserRow
		role model.Role
		hash []byte
		pwd  string
	}
	var validRows []validatedRow
	seen := make(map[string]bool, len(rows))

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	for _, row := range rows {
		if row.Username == "" || row.Name == "" {
			fail(row.Row, "必填字段为空")
			continue
		}
		role, ok := parseRoleCell(row.Role)
		if !ok {
			fail(row.Row, fmt.Sprintf("无效的角色: %s", row.Role))
			continue
		}
		if seen[row.Username] {
			fail(row.Row, fmt.Sprintf("文件内用户名重复: %s", row.Username))
			continue
		}
		if _, err := s.repo.User.GetByUsername(ctx, row.Username); err == nil {
			fail(row.Row, fmt.Sprintf("用户名已存在: %s", row.Username))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		pwd, err := generateTempPassword(10)
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "密码哈希失败")
			continue
		}

		seen[row.Username] = true
		validRows = append(validRows, validatedRow{row: row, role: role, hash: hash, pwd: pwd})
	}

	// 第二阶段：在事务中批量创建所有通过校验的用户
	if len(validRows) == 0 {
		return resp, nil
	}
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		for _, vr := range validRows {
			user := &model.User{
				Username:     vr.row.Username,
				Name:         vr.row.Name,
				Email:        vr.row.Email,
				PasswordHash: string(vr.hash),
				Role:         vr.role,
			}
			if err := txRepo.User.Create(ctx, user); err != nil {
				s.logger.Error("导入用户写入失败，事务回滚", zap.Int("row", vr.row.Row), zap.Error(err))
				return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Success = len(validRows)
	resp.Passwords = make(map[string]string, len(validRows))
	for _, vr := range validRows {
		resp.Passwords[vr.row.Username] = vr.pwd
	}
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < minPasswordLen {
		length = minPasswordLen
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}
	return string(result), nil
}
