package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"food-ordering-api/apperr"
	"food-ordering-api/models"
	"food-ordering-api/policy"
)

type RestaurantInput struct {
	Name    string   `json:"name" binding:"required,min=2,max=100"`
	Address string   `json:"address" binding:"required"`
	Phone   string   `json:"phone" binding:"required,phone"`
	Image   string   `json:"image" binding:"omitempty,url"`
	Lat     *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
}

type MenuItemInput struct {
	Name        string           `json:"name" binding:"required,min=2,max=100"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Description string           `json:"description" binding:"required,max=1000"`
	Image       string           `json:"image" binding:"omitempty,url"`
}

type RatingInput struct {
	Stars   int    `json:"stars" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

type SearchParams struct {
	Search string   `form:"search"`
	Sort   string   `form:"sort" binding:"omitempty,oneof=name rating distance"`
	Lat    *float64 `form:"lat" binding:"omitempty,gte=-90,lte=90"`
	Lng    *float64 `form:"lng" binding:"omitempty,gte=-180,lte=180"`
	Page   int      `form:"page" binding:"omitempty,min=1,max=100000"`
	Limit  int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

type RestaurantService struct {
	db *gorm.DB
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{db: db}
}

// ── Owner: restaurant profile ───────────────────────────────────────────────

// CreateRestaurant registers the caller's restaurant. New restaurants wait in pending until an admin activates them.
func (s *RestaurantService) CreateRestaurant(ctx context.Context, actor policy.Actor, in RestaurantInput) (*models.Restaurant, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Restaurant{}).Where("owner_id = ?", actor.ID).Count(&count).Error; err != nil {
		return nil, apperr.Internal(err, "failed to check existing restaurant")
	}
	if count > 0 {
		return nil, apperr.Conflict("You already have a restaurant")
	}

	restaurant := models.Restaurant{
		OwnerID: actor.ID,
		Name:    in.Name,
		Address: in.Address,
		Phone:   in.Phone,
		Image:   in.Image,
		Lat:     *in.Lat,
		Lng:     *in.Lng,
		Status:  models.RestaurantPending,
	}
	if err := s.db.WithContext(ctx).Create(&restaurant).Error; err != nil {
		return nil, apperr.Internal(err, "failed to create restaurant")
	}
	return &restaurant, nil
}

// OwnedRestaurant returns the restaurant of the caller with its derived rating
func (s *RestaurantService) OwnedRestaurant(ctx context.Context, actor policy.Actor) (*models.Restaurant, error) {
	restaurant, err := s.ownedBy(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.attachRatings(ctx, []*models.Restaurant{restaurant}); err != nil {
		return nil, err
	}
	return restaurant, nil
}

func (s *RestaurantService) UpdateRestaurant(ctx context.Context, actor policy.Actor, in RestaurantInput) (*models.Restaurant, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	restaurant, err := s.ownedBy(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionManageRestaurant, policy.RestaurantResource(restaurant)); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(restaurant).Updates(map[string]any{
		"name":    in.Name,
		"address": in.Address,
		"phone":   in.Phone,
		"image":   in.Image,
		"lat":     *in.Lat,
		"lng":     *in.Lng,
	}).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to update restaurant")
	}
	return s.OwnedRestaurant(ctx, actor)
}

// ── Owner and admin: menu ───────────────────────────────────────────────────

func (s *RestaurantService) OwnMenu(ctx context.Context, actor policy.Actor) ([]models.MenuItem, error) {
	restaurant, err := s.ownedBy(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.menuOf(ctx, restaurant.ID)
}

func (s *RestaurantService) AddMenuItem(ctx context.Context, actor policy.Actor, in MenuItemInput) (*models.MenuItem, error) {
	if err := validateMenuItem(in); err != nil {
		return nil, err
	}
	restaurant, err := s.ownedBy(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Create a restaurant first before adding menu items")
		}
		return nil, err
	}

	item := models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        models.NewMoney(*in.Price),
		Image:        in.Image,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, apperr.Internal(err, "failed to add menu item")
	}
	return &item, nil
}

func (s *RestaurantService) UpdateMenuItem(ctx context.Context, actor policy.Actor, itemID uint, in MenuItemInput) (*models.MenuItem, error) {
	if err := validateMenuItem(in); err != nil {
		return nil, err
	}
	item, err := s.manageableItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(item).Updates(map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"price":       *in.Price,
		"image":       in.Image,
	}).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to update menu item")
	}

	var updated models.MenuItem
	if err := s.db.WithContext(ctx).First(&updated, item.ID).Error; err != nil {
		return nil, apperr.Internal(err, "failed to reload menu item")
	}
	return &updated, nil
}

func (s *RestaurantService) DeleteMenuItem(ctx context.Context, actor policy.Actor, itemID uint) error {
	item, err := s.manageableItem(ctx, actor, itemID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return apperr.Internal(err, "failed to delete menu item")
	}
	return nil
}

func (s *RestaurantService) manageableItem(ctx context.Context, actor policy.Actor, itemID uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Menu item not found")
		}
		return nil, apperr.Internal(err, "failed to load menu item")
	}
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, item.RestaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Restaurant not found")
		}
		return nil, apperr.Internal(err, "failed to load restaurant")
	}
	if err := policy.Authorize(actor, policy.ActionManageRestaurant, policy.RestaurantResource(&restaurant)); err != nil {
		return nil, err
	}
	return &item, nil
}

func validateMenuItem(in MenuItemInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	price := *in.Price
	if price.IsNegative() {
		return apperr.Validation("price must be greater than or equal to 0")
	}
	if price.GreaterThan(models.MaxMenuPrice) {
		return apperr.Validation("price must be less than or equal to %s", models.MaxMenuPrice.StringFixed(2))
	}
	if !price.Equal(price.Round(2)) {
		return apperr.Validation("price must have at most 2 decimal places")
	}
	return nil
}

// ── Public ──────────────────────────────────────────────────────────────────

// Search lists active restaurants, optionally filtered by name or address and sorted by
// name, mean rating or distance from (lat, lng) in kilometres.
func (s *RestaurantService) Search(ctx context.Context, p SearchParams) ([]models.Restaurant, error) {
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	if (p.Lat == nil) != (p.Lng == nil) {
		return nil, apperr.Validation("lat and lng must be provided together")
	}
	if p.Sort == "distance" && p.Lat == nil {
		return nil, apperr.Validation("lat and lng are required to sort by distance")
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = 10
	}

	query := s.db.WithContext(ctx).Where("status = ?", models.RestaurantActive)
	if term := strings.TrimSpace(p.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(address) LIKE ?", like, like)
	}

	// Derived sorts need every candidate before a page can be cut
	inMemory := p.Sort == "rating" || p.Sort == "distance"
	if p.Sort == "name" {
		query = query.Order("name asc")
	} else {
		query = query.Order("id asc")
	}
	if !inMemory {
		query = query.Limit(p.Limit).Offset((p.Page - 1) * p.Limit)
	}

	restaurants := []models.Restaurant{}
	if err := query.Find(&restaurants).Error; err != nil {
		return nil, apperr.Internal(err, "failed to search restaurants")
	}

	ptrs := make([]*models.Restaurant, len(restaurants))
	for i := range restaurants {
		ptrs[i] = &restaurants[i]
		if p.Lat != nil {
			d := Haversine(*p.Lat, *p.Lng, restaurants[i].Lat, restaurants[i].Lng)
			restaurants[i].Distance = &d
		}
	}
	if err := s.attachRatings(ctx, ptrs); err != nil {
		return nil, err
	}

	if !inMemory {
		return restaurants, nil
	}

	switch p.Sort {
	case "rating":
		sort.SliceStable(restaurants, func(i, j int) bool { return restaurants[i].Rating > restaurants[j].Rating })
	case "distance":
		sort.SliceStable(restaurants, func(i, j int) bool { return *restaurants[i].Distance < *restaurants[j].Distance })
	}

	start := (p.Page - 1) * p.Limit
	if start >= len(restaurants) {
		return []models.Restaurant{}, nil
	}
	end := start + p.Limit
	if end > len(restaurants) {
		end = len(restaurants)
	}
	return restaurants[start:end], nil
}

// GetRestaurant returns an active restaurant with its menu and mean rating.
// Pending, inactive and suspended restaurants are hidden from the public like in Search.
func (s *RestaurantService) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	restaurant, err := s.activeRestaurant(ctx, id, func(db *gorm.DB) *gorm.DB {
		return db.Preload("MenuItems", func(db *gorm.DB) *gorm.DB { return db.Order("name asc") })
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachRatings(ctx, []*models.Restaurant{restaurant}); err != nil {
		return nil, err
	}
	return restaurant, nil
}

func (s *RestaurantService) Menu(ctx context.Context, restaurantID uint) (*models.Restaurant, []models.MenuItem, error) {
	restaurant, err := s.activeRestaurant(ctx, restaurantID, nil)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.menuOf(ctx, restaurant.ID)
	if err != nil {
		return nil, nil, err
	}
	return restaurant, items, nil
}

func (s *RestaurantService) activeRestaurant(ctx context.Context, id uint, scope func(*gorm.DB) *gorm.DB) (*models.Restaurant, error) {
	query := s.db.WithContext(ctx)
	if scope != nil {
		query = scope(query)
	}
	var restaurant models.Restaurant
	err := query.Where("status = ?", models.RestaurantActive).First(&restaurant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Restaurant not found")
		}
		return nil, apperr.Internal(err, "failed to load restaurant")
	}
	return &restaurant, nil
}

// Rate records a customer's stars for a restaurant
func (s *RestaurantService) Rate(ctx context.Context, actor policy.Actor, restaurantID uint, in RatingInput) (*models.Rating, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	restaurant, err := s.activeRestaurant(ctx, restaurantID, nil)
	if err != nil {
		return nil, err
	}

	rating := models.Rating{
		UserID:       actor.ID,
		RestaurantID: restaurant.ID,
		Stars:        in.Stars,
		Comment:      in.Comment,
	}
	if err := s.db.WithContext(ctx).Create(&rating).Error; err != nil {
		return nil, apperr.Internal(err, "failed to save rating")
	}
	return &rating, nil
}

// ── Admin ───────────────────────────────────────────────────────────────────

func (s *RestaurantService) ListAll(ctx context.Context) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	if err := s.db.WithContext(ctx).Preload("Owner").Order("id asc").Find(&restaurants).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list restaurants")
	}
	ptrs := make([]*models.Restaurant, len(restaurants))
	for i := range restaurants {
		ptrs[i] = &restaurants[i]
	}
	if err := s.attachRatings(ctx, ptrs); err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (s *RestaurantService) SetStatus(ctx context.Context, restaurantID uint, status models.RestaurantStatus) (*models.Restaurant, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status must be one of: active, inactive, pending, suspended")
	}
	res := s.db.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", restaurantID).Update("status", status)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error, "failed to update restaurant status")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Restaurant not found")
	}
	return s.GetRestaurant(ctx, restaurantID)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func (s *RestaurantService) ownedBy(ctx context.Context, ownerID uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&restaurant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Restaurant profile not found")
		}
		return nil, apperr.Internal(err, "failed to load restaurant")
	}
	return &restaurant, nil
}

func (s *RestaurantService) menuOf(ctx context.Context, restaurantID uint) ([]models.MenuItem, error) {
	items := []models.MenuItem{}
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("name asc").Find(&items).Error; err != nil {
		return nil, apperr.Internal(err, "failed to load menu")
	}
	return items, nil
}

type ratingAggregate struct {
	RestaurantID uint
	Average      float64
	RatingsCount int
}

// attachRatings fills the derived Rating and RatingsCount fields in one grouped query
func (s *RestaurantService) attachRatings(ctx context.Context, restaurants []*models.Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}
	ids := make([]uint, len(restaurants))
	for i, r := range restaurants {
		ids[i] = r.ID
	}

	var aggs []ratingAggregate
	err := s.db.WithContext(ctx).Model(&models.Rating{}).
		Select("restaurant_id, AVG(stars) AS average, COUNT(*) AS ratings_count").
		Where("restaurant_id IN ?", ids).
		Group("restaurant_id").
		Scan(&aggs).Error
	if err != nil {
		return apperr.Internal(err, "failed to aggregate ratings")
	}

	byID := make(map[uint]ratingAggregate, len(aggs))
	for _, a := range aggs {
		byID[a.RestaurantID] = a
	}
	for _, r := range restaurants {
		a := byID[r.ID]
		r.Rating = a.Average
		r.RatingsCount = a.RatingsCount
	}
	return nil
}

