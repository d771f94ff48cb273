package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"voucher_vault/internal/domain" // Importing domain models
	"voucher_vault/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Username
	Role     string `json:"role"`     // User role
	Vouchers int    `json:"vouchers"` // Number of vouchers owned
}

// pageParams reads page and page_size from the query with sane bounds
func pageParams(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		// Convert page to integer
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		// Convert page_size to integer
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// ListUsersHandler returns all users with their voucher counts
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page, pageSize := pageParams(c)
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Preload vouchers so counts come in one round trip
		if err := db.Preload("Vouchers").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:       u.ID,            // User ID
				Username: u.Username,      // Username
				Role:     u.Role,          // User role
				Vouchers: len(u.Vouchers), // Owned voucher count
			}
		}
		respData := gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// ListAllVouchersHandler returns vouchers across all owners, with optional
// filtering by owner, category, persisted status, or creation date
func ListAllVouchersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		// Build cache key from all query params
		var keyParts []string // Parts of the cache key
		for _, k := range []string{"owner_id", "category", "status", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		cacheKey := "admin:vouchers:" + strings.Join(keyParts, ":")
		var cached struct {
			Vouchers   []domain.Voucher `json:"vouchers"`    // List of vouchers
			Page       int              `json:"page"`        // Current page
			PageSize   int              `json:"page_size"`   // Page size
			Total      int64            `json:"total"`       // Total number of vouchers
			TotalPages int              `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"vouchers":    cached.Vouchers,   // List of vouchers
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of vouchers
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page, pageSize := pageParams(c)
		offset := (page - 1) * pageSize      // Calculate offset for pagination
		query := db.Model(&domain.Voucher{}) // Start building the query
		if ownerID := c.Query("owner_id"); ownerID != "" {
			query = query.Where("owner_id = ?", ownerID) // Filter by owner
		}
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category) // Filter by category
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by persisted status
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64 // Total voucher count
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count vouchers"})
			return
		}
		var vouchers []domain.Voucher // Slice to hold vouchers
		// Fetch paginated vouchers with filters applied
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&vouchers).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vouchers"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		respData := gin.H{
			"vouchers":    vouchers,   // List of vouchers
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of vouchers
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}
