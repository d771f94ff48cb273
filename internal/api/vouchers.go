package api

import (
	"bytes"   // Workbook buffering for export
	"context" // Context for Redis operations
	"errors"  // Error classification
	"net/http"
	"strconv" // Cache key building
	"time"    // Derivation clock and cache TTLs

	"voucher_vault/internal/domain"  // Voucher model
	"voucher_vault/internal/utils"   // Cache helpers
	"voucher_vault/internal/voucher" // Pure voucher engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// xlsxContentType is the MIME type of the export download
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// VoucherResponse is a voucher as shown to the user: the status is the
// derived display status and the remaining balance is precomputed
type VoucherResponse struct {
	domain.Voucher
	Status    string  `json:"status"`    // Derived status: unused, used or expired
	Remaining float64 `json:"remaining"` // value - spent, floored at zero
}

// toResponse overlays the derived fields onto a stored voucher
func toResponse(v domain.Voucher, now time.Time) VoucherResponse {
	return VoucherResponse{
		Voucher:   v,
		Status:    voucher.EffectiveStatus(v, now),
		Remaining: v.Remaining(),
	}
}

// toResponses maps a whole list
func toResponses(vs []domain.Voucher, now time.Time) []VoucherResponse {
	out := make([]VoucherResponse, len(vs))
	for i, v := range vs {
		out[i] = toResponse(v, now)
	}
	return out
}

// voucherCacheKey is the Redis key holding a user's raw voucher list
func voucherCacheKey(userID uint) string {
	return "vouchers:user:" + strconv.Itoa(int(userID))
}

// invalidateVoucherCache drops the owner's cached voucher list after a write
func invalidateVoucherCache(c *gin.Context, userID uint) {
	if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
		_ = utils.DeleteCache(context.Background(), rdb, voucherCacheKey(userID))
	}
}

// fetchVouchers loads the user's full voucher list in creation-descending
// order, going through the Redis cache when possible
func fetchVouchers(db *gorm.DB, rdb *redis.Client, userID uint) ([]domain.Voucher, error) {
	ctx := context.Background()
	cacheKey := voucherCacheKey(userID)
	var vouchers []domain.Voucher
	// Try the cache first
	if found, err := utils.GetCache(ctx, rdb, cacheKey, &vouchers); err == nil && found {
		return vouchers, nil
	}
	// Fetch from DB: newest first, id as tie-breaker
	if err := db.Where("owner_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	_ = utils.SetCache(ctx, rdb, cacheKey, vouchers, 60*time.Second) // Cache for 60 seconds
	return vouchers, nil
}

// respondMutationError maps engine errors onto HTTP statuses: validation
// failures are the caller's fault, everything else is a store failure
func respondMutationError(c *gin.Context, err error, action string) {
	var ve *voucher.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
		return
	}
	logrus.WithFields(logrus.Fields{
		"action": action,      // Which mutation failed
		"error":  err.Error(), // Store error, surfaced in logs verbatim
	}).Error("Voucher mutation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Request failed"})
}

// parseExpiresOn parses an optional YYYY-MM-DD date field
func parseExpiresOn(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil // Absent means never expires
	}
	t, err := time.ParseInLocation(voucher.DateLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListVouchersHandler returns the user's vouchers after applying the
// filter, search and sort pipeline. The raw list is cached per user; the
// projection itself is recomputed on every request.
func ListVouchersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		vouchers, err := fetchVouchers(db, rdb, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vouchers"})
			return
		}
		now := time.Now()
		projected := voucher.Project(vouchers,
			c.DefaultQuery("category", voucher.CategoryAll), // Category filter
			c.Query("q"),                                    // Search term
			c.DefaultQuery("sort", voucher.SortCreatedDesc), // Sort key
			now)
		c.JSON(http.StatusOK, gin.H{
			"vouchers":   toResponses(projected, now), // Projected list with derived status
			"total":      len(vouchers),               // Size before filtering
			"categories": domain.Categories(),         // Fixed category set for the picker
		})
	}
}

// AddVoucherRequest represents a voucher creation request
type AddVoucherRequest struct {
	Name        string  `json:"name" binding:"required"`  // Display label
	Value       float64 `json:"value" binding:"required"` // Face value
	InitialUsed float64 `json:"initial_used"`             // Amount already redeemed
	Category    string  `json:"category"`                 // Category label
	Code        *string `json:"code"`                     // Optional voucher code
	Pin         *string `json:"pin"`                      // Optional PIN
	ExpiresOn   string  `json:"expires_on"`               // Optional expiry date YYYY-MM-DD
}

// AddVoucherHandler creates a voucher for the authenticated user
func AddVoucherHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req AddVoucherRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		expiresOn, err := parseExpiresOn(req.ExpiresOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires_on must be YYYY-MM-DD"})
			return
		}
		// Validate and compute the new row before touching the store
		v, err := voucher.NewVoucher(userID.(uint), voucher.AddInput{
			Name:        req.Name,
			Value:       req.Value,
			InitialUsed: req.InitialUsed,
			Category:    req.Category,
			Code:        req.Code,
			Pin:         req.Pin,
			ExpiresOn:   expiresOn,
		})
		if err != nil {
			respondMutationError(c, err, "add")
			return
		}
		if err := db.Create(&v).Error; err != nil {
			respondMutationError(c, err, "add")
			return
		}
		// Log successful creation
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,     // Owner
			"voucher_id": v.ID,       // New voucher ID
			"value":      v.Value,    // Face value
			"category":   v.Category, // Category
			"type":       "add",      // Mutation type
		}).Info("Voucher added")
		invalidateVoucherCache(c, userID.(uint)) // Invalidate list cache
		c.JSON(http.StatusCreated, gin.H{"voucher": toResponse(v, time.Now())})
	}
}

// PartialUseRequest represents a partial redemption request
type PartialUseRequest struct {
	Amount float64 `json:"amount" binding:"required"` // Amount to redeem
}

// PartialUseHandler redeems part of a voucher's remaining balance
func PartialUseHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req PartialUseRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var v domain.Voucher // Fetch the voucher, scoped to the owner
		if err := db.Where("id = ? AND owner_id = ?", c.Param("id"), userID).First(&v).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voucher not found"})
			return
		}
		// Validate and apply in memory first; a rejection writes nothing
		if err := voucher.PartialUse(&v, req.Amount); err != nil {
			respondMutationError(c, err, "partial_use")
			return
		}
		if err := db.Model(&v).Select("spent", "status").Updates(&v).Error; err != nil {
			respondMutationError(c, err, "partial_use")
			return
		}
		// Log successful redemption
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,        // Owner
			"voucher_id": v.ID,          // Voucher ID
			"amount":     req.Amount,    // Redeemed amount
			"spent":      v.Spent,       // New cumulative spend
			"remaining":  v.Remaining(), // Remaining balance
			"type":       "partial_use", // Mutation type
		}).Info("Voucher partially used")
		invalidateVoucherCache(c, userID.(uint)) // Invalidate list cache
		c.JSON(http.StatusOK, gin.H{"voucher": toResponse(v, time.Now())})
	}
}

// ToggleVoucherHandler flips a voucher between fully used and fully unused
func ToggleVoucherHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var v domain.Voucher // Fetch the voucher, scoped to the owner
		if err := db.Where("id = ? AND owner_id = ?", c.Param("id"), userID).First(&v).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voucher not found"})
			return
		}
		voucher.Toggle(&v) // Flip between the two extremes
		if err := db.Model(&v).Select("spent", "status").Updates(map[string]any{
			"spent":  v.Spent,  // 0 or the full value
			"status": v.Status, // unused or used
		}).Error; err != nil {
			respondMutationError(c, err, "toggle")
			return
		}
		// Log the flip
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,   // Owner
			"voucher_id": v.ID,     // Voucher ID
			"status":     v.Status, // New persisted status
			"type":       "toggle", // Mutation type
		}).Info("Voucher toggled")
		invalidateVoucherCache(c, userID.(uint)) // Invalidate list cache
		c.JSON(http.StatusOK, gin.H{"voucher": toResponse(v, time.Now())})
	}
}

// EditVoucherRequest represents a full-replacement edit request
type EditVoucherRequest struct {
	Name      string  `json:"name" binding:"required"`  // Display label
	Value     float64 `json:"value" binding:"required"` // Face value
	Category  string  `json:"category"`                 // Category label
	Code      *string `json:"code"`                     // Optional voucher code
	Pin       *string `json:"pin"`                      // Optional PIN
	ExpiresOn string  `json:"expires_on"`               // Optional expiry date YYYY-MM-DD
}

// EditVoucherHandler replaces a voucher's editable fields
func EditVoucherHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req EditVoucherRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		expiresOn, err := parseExpiresOn(req.ExpiresOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires_on must be YYYY-MM-DD"})
			return
		}
		var v domain.Voucher // Fetch the voucher, scoped to the owner
		if err := db.Where("id = ? AND owner_id = ?", c.Param("id"), userID).First(&v).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voucher not found"})
			return
		}
		// Validate and apply the replacement in memory first
		if err := voucher.Edit(&v, voucher.EditInput{
			Name:      req.Name,
			Value:     req.Value,
			Category:  req.Category,
			Code:      req.Code,
			Pin:       req.Pin,
			ExpiresOn: expiresOn,
		}); err != nil {
			respondMutationError(c, err, "edit")
			return
		}
		// Save writes every column, including fields cleared to NULL
		if err := db.Save(&v).Error; err != nil {
			respondMutationError(c, err, "edit")
			return
		}
		// Log the edit
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,  // Owner
			"voucher_id": v.ID,    // Voucher ID
			"value":      v.Value, // New face value
			"spent":      v.Spent, // Possibly clamped spend
			"type":       "edit",  // Mutation type
		}).Info("Voucher edited")
		invalidateVoucherCache(c, userID.(uint)) // Invalidate list cache
		c.JSON(http.StatusOK, gin.H{"voucher": toResponse(v, time.Now())})
	}
}

// DeleteVoucherHandler permanently removes a voucher. Confirmation happens
// in the UI before this endpoint is called.
func DeleteVoucherHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var v domain.Voucher // Fetch the voucher, scoped to the owner
		if err := db.Where("id = ? AND owner_id = ?", c.Param("id"), userID).First(&v).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voucher not found"})
			return
		}
		if err := db.Delete(&v).Error; err != nil {
			respondMutationError(c, err, "delete")
			return
		}
		// Log the deletion
		logrus.WithFields(logrus.Fields{
			"user_id":    userID,   // Owner
			"voucher_id": v.ID,     // Deleted voucher ID
			"type":       "delete", // Mutation type
		}).Info("Voucher deleted")
		invalidateVoucherCache(c, userID.(uint)) // Invalidate list cache
		c.JSON(http.StatusOK, gin.H{"message": "Voucher deleted"})
	}
}

// ExportVouchersHandler downloads the user's vouchers as an XLSX workbook
func ExportVouchersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		vouchers, err := fetchVouchers(db, rdb, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vouchers"})
			return
		}
		var buf bytes.Buffer // Build the workbook in memory
		if err := voucher.WriteWorkbook(&buf, vouchers, time.Now()); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // Owner
				"error":   err.Error(), // Codec failure
			}).Error("Voucher export failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
			return
		}
		// Log the export
		logrus.WithFields(logrus.Fields{
			"user_id": userID,        // Owner
			"count":   len(vouchers), // Exported rows
			"type":    "export",      // Operation type
		}).Info("Vouchers exported")
		c.Header("Content-Disposition", `attachment; filename="vouchers.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes()) // Send the file
	}
}

// ImportVouchersHandler bulk-inserts vouchers from an uploaded XLSX file.
// Malformed rows drop silently; a file with no valid rows writes nothing.
func ImportVouchersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		fileHeader, err := c.FormFile("file") // Multipart upload field
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file upload"})
			return
		}
		defer file.Close()
		rows, err := voucher.ReadWorkbook(file) // Decode the sheet
		if err != nil {
			respondMutationError(c, err, "import")
			return
		}
		// Parse rows defensively and reject an all-bad batch
		vouchers, err := voucher.ParseImportRows(userID.(uint), rows)
		if err != nil {
			respondMutationError(c, err, "import")
			return
		}
		// Insert every valid row in a single batch
		if err := db.Create(&vouchers).Error; err != nil {
			respondMutationError(c, err, "import")
			return
		}
		// Log the import
		logrus.WithFields(logrus.Fields{
			"user_id":  userID,                      // Owner
			"imported": len(vouchers),               // Inserted rows
			"dropped":  len(rows) - len(vouchers),   // Malformed rows skipped
			"type":     "import",                    // Operation type
		}).Info("Vouchers imported")
		invalidateVoucherCache(c, userID.(uint)) // Invalidate list cache
		c.JSON(http.StatusCreated, gin.H{
			"imported": len(vouchers),             // Rows inserted
			"dropped":  len(rows) - len(vouchers), // Rows silently dropped
		})
	}
}
