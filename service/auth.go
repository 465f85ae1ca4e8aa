package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"shrimpy/config"
	"shrimpy/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRedirect 邮箱确认后的默认跳转
const DefaultRedirect = "/admin/login"

// Session 已解析的登录会话，按请求传递
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthService 注册、确认、登录、登出与角色查询
type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer Mailer
	now    func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(db *gorm.DB, cfg *config.Config, mailer Mailer) *AuthService {
	return &AuthService{db: db, cfg: cfg, mailer: mailer, now: time.Now}
}

// SignUp 创建账号；未开启自动确认时账号处于 pending 状态并发送确认邮件
func (s *AuthService) SignUp(ctx context.Context, email, password, redirectTo string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < s.cfg.Auth.MinPasswordLength {
		return nil, &ValidationError{Message: fmt.Sprintf("Password must be at least %d characters.", s.cfg.Auth.MinPasswordLength)}
	}

	var existing models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &models.User{Email: email, Password: string(hash), Status: models.UserStatusPending}
	if s.cfg.Auth.AutoConfirm {
		user.Status = models.UserStatusActive
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, fmt.Errorf("创建用户失败: %w", err)
		}
		log.Info().Str("email", email).Msg("账号已创建（自动确认）")
		return user, nil
	}

	token, err := models.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("生成确认令牌失败: %w", err)
	}

	// 邮件发送失败时回滚，避免留下无法确认的账号
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		confirmation := &models.EmailConfirmation{
			UserID:     user.ID,
			Email:      email,
			Token:      token,
			RedirectTo: s.safeRedirect(redirectTo),
			ExpiresAt:  s.now().Add(time.Duration(s.cfg.Auth.ConfirmExpireHours) * time.Hour),
		}
		if err := tx.Create(confirmation).Error; err != nil {
			return fmt.Errorf("保存确认令牌失败: %w", err)
		}
		return s.mailer.SendConfirmationEmail(email, s.confirmLink(token))
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("email", email).Msg("账号已创建，等待邮箱确认")
	return user, nil
}

// Confirm 使用确认令牌激活账号，返回确认后的跳转地址
func (s *AuthService) Confirm(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var confirmation models.EmailConfirmation
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&confirmation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("查询确认令牌失败: %w", err)
	}
	if confirmation.Used || s.now().After(confirmation.ExpiresAt) {
		return "", ErrInvalidToken
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", confirmation.UserID).
			Update("status", models.UserStatusActive).Error; err != nil {
			return err
		}
		return tx.Model(&confirmation).Update("used", true).Error
	})
	if err != nil {
		return "", fmt.Errorf("确认账号失败: %w", err)
	}

	redirect := confirmation.RedirectTo
	if redirect == "" {
		redirect = DefaultRedirect
	}
	return redirect, nil
}

// SignIn 校验邮箱密码并创建会话
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	session := &models.Session{
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.cfg.JWT.ExpireTime),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("创建会话失败: %w", err)
	}

	return &Session{ID: session.ID, UserID: user.ID, Email: user.Email, ExpiresAt: session.ExpiresAt}, nil
}

// SignOut 删除会话，会话不存在视为成功
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}

// Resolve 根据会话 ID 加载会话，过期或不存在返回 ErrInvalidSession
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.SignOut(ctx, session.ID)
		return nil, ErrInvalidSession
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	return &Session{ID: session.ID, UserID: user.ID, Email: user.Email, ExpiresAt: session.ExpiresAt}, nil
}

// HasRole user_roles 中存在对应记录即拥有该角色
func (s *AuthService) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	var rows []models.UserRole
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return false, fmt.Errorf("查询角色失败: %w", err)
	}
	return len(rows) > 0, nil
}

// IsAdmin 是否拥有管理员角色
func (s *AuthService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	return s.HasRole(ctx, userID, models.RoleAdmin)
}

// GrantRole 为指定邮箱的用户授予角色，重复授予无副作用
func (s *AuthService) GrantRole(ctx context.Context, email, role string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: user.ID, Role: role}).Error
}

// RevokeRole 撤销角色
func (s *AuthService) RevokeRole(ctx context.Context, email, role string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", user.ID, role).
		Delete(&models.UserRole{}).Error
}

// PurgeExpiredSessions 清理过期会话
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) confirmLink(token string) string {
	return strings.TrimRight(s.cfg.Server.BaseURL, "/") + "/api/v1/auth/confirm?token=" + url.QueryEscape(token)
}

// safeRedirect 仅允许站内跳转，防止开放重定向
func (s *AuthService) safeRedirect(target string) string {
	// 浏览器将 "\" 视为 "/"，"/\host" 等同于 "//host"
	if target == "" || strings.ContainsAny(target, "\\\r\n\t") {
		return DefaultRedirect
	}
	base := strings.TrimRight(s.cfg.Server.BaseURL, "/")
	if base != "" && (target == base || strings.HasPrefix(target, base+"/")) {
		return target
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return DefaultRedirect
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultRedirect
	}
	return target
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ValidationError{Message: "Please enter a valid email address."}
	}
	return email, nil
}
