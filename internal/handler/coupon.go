package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// Lookup lets a shopper check a code before checkout.
func (h *CouponHandler) Lookup(c *gin.Context) {
	code := c.Param("code")
	resp, err := h.couponService.Lookup(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCouponInvalid) {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon is not valid"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CouponHandler) Create(c *gin.Context) {
	var req dto.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.couponService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCouponExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coupon code already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}
