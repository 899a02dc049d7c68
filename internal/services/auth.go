package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mhalvorsen/gigbook/backend/internal/config"
	"github.com/mhalvorsen/gigbook/backend/internal/models"
	"github.com/mhalvorsen/gigbook/backend/internal/utils"
	"gorm.io/gorm"
)

type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
	configSvc   *SystemConfigService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{
		db:          db,
		ldapService: NewLDAPService(db),
		jwtConfig:   jwtCfg,
		configSvc:   NewSystemConfigService(db),
	}
}

type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	Name           string `json:"name" binding:"required"`
	MainInstrument string `json:"main_instrument"`
}

// Register creates a local account together with its personal project, the
// default home for gigs the user books solo.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("%w: email already registered", ErrValidation)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:            email,
		Password:         hashedPassword,
		Name:             req.Name,
		MainInstrument:   req.MainInstrument,
		CalendarICSToken: uuid.NewString(),
		Role:             "user",
		AuthType:         "local",
		IsActive:         true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		personal := models.Project{
			OwnerID:  user.ID,
			Name:     fmt.Sprintf("%s's Gigs", user.Name),
			Personal: true,
		}
		return tx.Create(&personal).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type LoginResult struct {
	AccessToken     string       `json:"access_token"`
	AccessExpireAt  time.Time    `json:"access_expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
	User            *models.User `json:"user"`
}

type RefreshResult struct {
	AccessToken     string    `json:"access_token"`
	AccessExpireAt  time.Time `json:"access_expire_at"`
	RefreshToken    string    `json:"refresh_token"`
	RefreshExpireAt time.Time `json:"refresh_expire_at"`
}

// Login authenticates a user and returns an access/refresh token pair
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var user *models.User
	var err error

	// Default to local auth if not specified
	if req.AuthType == "" {
		req.AuthType = "local"
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	switch req.AuthType {
	case "local":
		user, err = s.localAuth(email, req.Password)
	case "ldap":
		user, err = s.ldapAuth(email, req.Password)
	default:
		return nil, fmt.Errorf("%w: invalid auth type", ErrValidation)
	}

	if err != nil {
		return nil, err
	}

	accessHours := s.getAccessTokenExpireHours()
	refreshHours := s.getRefreshTokenExpireHours()

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, accessHours)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshExpireAt := time.Now().Add(time.Duration(refreshHours) * time.Hour)
	refreshRecord := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: refreshExpireAt,
	}
	if clientIP != "" {
		refreshRecord.CreatedByIP = clientIP
	}
	if userAgent != "" {
		refreshRecord.UserAgent = userAgent
	}
	if err := s.db.Create(&refreshRecord).Error; err != nil {
		return nil, err
	}

	// Update last login time
	now := time.Now()
	user.LastLogin = &now
	s.db.Save(user)

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: refreshExpireAt,
		User:            user,
	}, nil
}

func (s *AuthService) Refresh(refreshToken string, clientIP, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrUnauthenticated
	}

	hash := hashRefreshToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if stored.RevokedAt != nil {
		return nil, ErrUnauthenticated
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrUnauthenticated
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}

	accessHours := s.getAccessTokenExpireHours()
	refreshHours := s.getRefreshTokenExpireHours()

	newAccessToken, err := utils.GenerateToken(user.ID, user.Email, user.Role, accessHours)
	if err != nil {
		return nil, err
	}

	newRefreshToken, newRefreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	newRefresh := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: newRefreshHash,
		ExpiresAt: now.Add(time.Duration(refreshHours) * time.Hour),
	}
	if clientIP != "" {
		newRefresh.CreatedByIP = clientIP
	}
	if userAgent != "" {
		newRefresh.UserAgent = userAgent
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRefresh).Error; err != nil {
			return err
		}
		if err := tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": newRefresh.ID,
		}).Error; err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:     newAccessToken,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    newRefreshToken,
		RefreshExpireAt: newRefresh.ExpiresAt,
	}, nil
}

func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	hash := hashRefreshToken(refreshToken)
	now := time.Now()
	if err := s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now).Error; err != nil {
		return err
	}

	return nil
}

func (s *AuthService) getAccessTokenExpireHours() int {
	defaultHours := s.jwtConfig.ExpireHour
	value := s.configSvc.GetWithDefault("auth_access_token_expire_hours", strconv.Itoa(defaultHours))
	hours, err := strconv.Atoi(value)
	if err != nil || hours <= 0 {
		return defaultHours
	}
	return hours
}

func (s *AuthService) getRefreshTokenExpireHours() int {
	value := s.configSvc.GetWithDefault("auth_refresh_token_expire_hours", "720")
	hours, err := strconv.Atoi(value)
	if err != nil || hours <= 0 {
		return 720
	}
	return hours
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	tokenHash = hashRefreshToken(token)
	return token, tokenHash, nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) localAuth(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND auth_type = ?", email, "local").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrForbidden
	}

	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrUnauthenticated
	}

	return &user, nil
}

func (s *AuthService) ldapAuth(email, password string) (*models.User, error) {
	// Authenticate against LDAP
	ldapUser, err := s.ldapService.Authenticate(email, password)
	if err != nil {
		return nil, err
	}

	// Find or create user in database
	var user models.User
	err = s.db.Where("email = ? AND auth_type = ?", ldapUser.Email, "ldap").First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First LDAP login provisions the account and its personal project
		user = models.User{
			Email:            ldapUser.Email,
			Name:             ldapUser.Name,
			CalendarICSToken: uuid.NewString(),
			Role:             "user",
			AuthType:         "ldap",
			IsActive:         true,
		}
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			personal := models.Project{
				OwnerID:  user.ID,
				Name:     fmt.Sprintf("%s's Gigs", user.Name),
				Personal: true,
			}
			return tx.Create(&personal).Error
		}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrForbidden
	}

	// Update user info from LDAP
	user.Name = ldapUser.Name
	s.db.Save(&user)

	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

type UpdateProfileRequest struct {
	Name               *string `json:"name"`
	MainInstrument     *string `json:"main_instrument"`
	Phone              *string `json:"phone"`
	DefaultCountryCode *string `json:"default_country_code"`
}

func (s *AuthService) UpdateProfile(userID uint, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.MainInstrument != nil {
		updates["main_instrument"] = *req.MainInstrument
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.DefaultCountryCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.DefaultCountryCode))
		if len(code) != 2 && code != "NONE" {
			return nil, fmt.Errorf("%w: invalid country code", ErrValidation)
		}
		updates["default_country_code"] = code
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// RotateCalendarToken invalidates the old ICS feed URL and returns the new
// token.
func (s *AuthService) RotateCalendarToken(userID uint) (string, error) {
	token := uuid.NewString()
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("calendar_ics_token", token).Error; err != nil {
		return "", err
	}
	return token, nil
}

// CreateAdminIfNotExists creates default admin user if not exists
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "admin").Count(&count)

	if count == 0 {
		hashedPassword, err := utils.HashPassword("admin")
		if err != nil {
			return err
		}

		admin := models.User{
			Email:            "admin@localhost",
			Password:         hashedPassword,
			Name:             "Administrator",
			CalendarICSToken: uuid.NewString(),
			Role:             "admin",
			AuthType:         "local",
			IsActive:         true,
		}

		return s.db.Create(&admin).Error
	}

	return nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService.IsEnabled()
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ErrNotFound
	}

	if user.AuthType != "local" {
		return fmt.Errorf("%w: LDAP users cannot change password here", ErrValidation)
	}

	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return fmt.Errorf("%w: incorrect old password", ErrValidation)
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	return s.db.Save(&user).Error
}
