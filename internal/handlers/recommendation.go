package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/recommend"
	"github.com/brimstore/recsys/pkg/models"
)

type recommendationQuery struct {
	Limit  int    `form:"limit,default=10" binding:"min=1,max=100"`
	Device string `form:"device"`
}

type RecommendationHandler struct {
	recommender recommend.Recommender
	explainer   recommend.Explainer
	logger      *logrus.Logger
}

func NewRecommendationHandler(
	recommender recommend.Recommender,
	explainer recommend.Explainer,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		explainer:   explainer,
		logger:      logger,
	}
}

// Get serves GET /recommendations/:userId. The response carries product
// identifiers only, ranked best first.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var query recommendationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_QUERY",
				"message": "limit must be an integer between 1 and 100",
			},
		})
		return
	}

	sig := recommend.SignatureFor(time.Now(), query.Device)

	result, err := h.recommender.Recommend(c.Request.Context(), userID, query.Limit, sig)
	if err != nil {
		h.writeError(c, err, userID)
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		Recommendations: result.ProductIDs(),
	})
}

// Explain serves GET /recommendations/:userId/explain/:productId as plain
// text, matching the last computed recommendation set for the user.
func (h *RecommendationHandler) Explain(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_PRODUCT_ID",
				"message": "Product ID must be an integer",
			},
		})
		return
	}

	explanation, err := h.explainer.Explain(userID, productID)
	if err != nil {
		h.writeError(c, err, userID)
		return
	}

	c.String(http.StatusOK, explanation)
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "User ID must be an integer",
			},
		})
		return 0, false
	}
	return userID, true
}

func (h *RecommendationHandler) writeError(c *gin.Context, err error, userID int64) {
	switch {
	case errors.Is(err, recommend.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_ARGUMENT",
				"message": err.Error(),
			},
		})
	case errors.Is(err, recommend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": err.Error(),
			},
		})
	case errors.Is(err, recommend.ErrUpstreamUnavailable):
		h.logger.WithError(err).WithField("user_id", userID).Error("Recommendation backend unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"code":    "UPSTREAM_UNAVAILABLE",
				"message": "Recommendation data is temporarily unavailable",
			},
		})
	default:
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
	}
}
