package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"food-ordering-api/apperr"
	"food-ordering-api/models"
)

type RegisterInput struct {
	Name     string          `json:"name" binding:"required,min=2,max=50"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=6"`
	Phone    string          `json:"phone" binding:"required,phone"`
	Role     models.UserRole `json:"role" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileInput changes only the fields that are present. An empty image_url clears the picture.
type UpdateProfileInput struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=50"`
	Phone    *string `json:"phone" binding:"omitempty,phone"`
	ImageURL *string `json:"image_url"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type AuthService struct {
	db *gorm.DB
	// bcrypt cost; tests lower it
	cost int
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db, cost: bcrypt.DefaultCost}
}

// Register creates a customer, restaurant or delivery account. Admins are provisioned with EnsureAdmin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !in.Role.Valid() || in.Role == models.RoleAdmin {
		return nil, apperr.Validation("Invalid role. Must be: customer, restaurant, or delivery")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR phone = ?", email, in.Phone).
		Count(&count).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to check existing user")
	}
	if count > 0 {
		return nil, apperr.Conflict("Email or phone already registered")
	}

	return s.createUser(ctx, in.Name, email, in.Phone, in.Password, in.Role)
}

// Login checks credentials and returns the user. Unknown email and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// ErrInvalidCredentials is returned by Login; handlers answer it with 401
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrWrongPassword is returned by ChangePassword when the current password does not match
var ErrWrongPassword = errors.New("current password is incorrect")

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	return &user, nil
}

// UpdateProfile edits the user's own name, phone and picture
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.ImageURL != nil && validate.Var(*in.ImageURL, "omitempty,url") != nil {
		return nil, apperr.Validation("image_url must be a valid URL")
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Phone != nil {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("phone = ? AND id <> ?", *in.Phone, user.ID).
			Count(&count).Error
		if err != nil {
			return nil, apperr.Internal(err, "failed to check phone")
		}
		if count > 0 {
			return nil, apperr.Conflict("Phone already registered")
		}
		updates["phone"] = *in.Phone
	}
	if in.ImageURL != nil {
		updates["image_url"] = *in.ImageURL
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperr.Internal(err, "failed to update profile")
	}
	return s.GetUser(ctx, user.ID)
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return apperr.Internal(err, "failed to hash password")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return apperr.Internal(err, "failed to change password")
	}
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error) {
	users := []models.User{}
	query := s.db.WithContext(ctx).Order("id asc")
	if role != "" {
		if !role.Valid() {
			return nil, apperr.Validation("Invalid role filter %q", role)
		}
		query = query.Where("role = ?", role)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list users")
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap admin account if no user holds that email yet
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err, "failed to load admin")
	}
	return s.createUser(ctx, "Administrator", email, "", password, models.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, name, email, phone, password string, role models.UserRole) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if phone != "" {
		user.Phone = &phone
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Internal(err, "failed to create user")
	}
	return &user, nil
}
