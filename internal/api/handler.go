package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"linkmarket/internal/auction"
	"linkmarket/internal/broker"
	"linkmarket/internal/models"
	"linkmarket/internal/redisclient"
	"linkmarket/internal/service"
	"linkmarket/internal/util"
)

// Handler contains HTTP handlers
type Handler struct {
	linkService     *service.LinkService
	productService  *service.ProductService
	sellerService   *service.SellerService
	checkoutService *service.CheckoutService
	auctionService  *auction.Service
	eventPublisher  *broker.EventPublisher
	redis           *redisclient.Client
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	linkService *service.LinkService,
	productService *service.ProductService,
	sellerService *service.SellerService,
	checkoutService *service.CheckoutService,
	auctionService *auction.Service,
	eventPublisher *broker.EventPublisher,
	redis *redisclient.Client,
) *Handler {
	return &Handler{
		linkService:     linkService,
		productService:  productService,
		sellerService:   sellerService,
		checkoutService: checkoutService,
		auctionService:  auctionService,
		eventPublisher:  eventPublisher,
		redis:           redis,
		logger:          util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sellers", h.onboardSeller)
		v1.GET("/sellers/:id", h.getSeller)
		v1.POST("/sellers/:id/onboarded", h.markSellerOnboarded)

		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", h.updateProduct)

		v1.POST("/links", h.createLink)
		v1.GET("/links/:id", h.getLink)
		v1.GET("/links/:id/auction", h.getAuctionSummary)
		v1.POST("/links/:id/checkout", h.createCheckoutSession)

		v1.POST("/bids", h.placeBid)

		v1.POST("/webhooks/payments", h.paymentWebhook)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type onboardSellerRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// onboardSeller creates a seller and their processor onboarding link
func (h *Handler) onboardSeller(c *gin.Context) {
	var req onboardSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   models.ErrCodeValidation,
			"details": err.Error(),
		})
		return
	}

	result, err := h.sellerService.Onboard(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// getSeller handles get seller by ID
func (h *Handler) getSeller(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": "invalid seller id"})
		return
	}

	seller, err := h.sellerService.GetSeller(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

// markSellerOnboarded is the return hook of the processor onboarding flow
func (h *Handler) markSellerOnboarded(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": "invalid seller id"})
		return
	}

	if err := h.sellerService.MarkOnboarded(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   models.ErrCodeValidation,
			"details": err.Error(),
		})
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// listProducts lists products, optionally filtered by seller
func (h *Handler) listProducts(c *gin.Context) {
	var sellerID int64
	if raw := c.Query("seller_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": "invalid seller_id"})
			return
		}
		sellerID = parsed
	}

	products, err := h.productService.ListProducts(c.Request.Context(), sellerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": "invalid product id"})
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// updateProduct handles product updates
func (h *Handler) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": "invalid product id"})
		return
	}

	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   models.ErrCodeValidation,
			"details": err.Error(),
		})
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// createLink handles payment link creation
func (h *Handler) createLink(c *gin.Context) {
	var req service.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   models.ErrCodeValidation,
			"details": err.Error(),
		})
		return
	}

	link, err := h.linkService.CreateLink(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// getLink handles get link by ID
func (h *Handler) getLink(c *gin.Context) {
	link, err := h.linkService.GetLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// getAuctionSummary returns live auction state for a link. Reading the
// summary is also a lazy-close trigger.
func (h *Handler) getAuctionSummary(c *gin.Context) {
	summary, err := h.auctionService.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type checkoutRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// createCheckoutSession opens a hosted checkout session for a link
func (h *Handler) createCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   models.ErrCodeValidation,
			"details": err.Error(),
		})
		return
	}

	result, err := h.checkoutService.CreateSession(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type placeBidRequest struct {
	LinkID      string `json:"link_id" binding:"required"`
	Email       string `json:"email" binding:"required"`
	AmountCents int64  `json:"amount_cents"`
}

// placeBid handles bid submission
func (h *Handler) placeBid(c *gin.Context) {
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   models.ErrCodeValidation,
			"details": err.Error(),
		})
		return
	}

	bid, err := h.auctionService.PlaceBid(c.Request.Context(), req.LinkID, req.Email, req.AmountCents)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "bid": bid})
}

// paymentWebhookPayload mirrors the processor's event envelope
type paymentWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID            string            `json:"id"`
		Status        string            `json:"status"`
		AmountCents   int64             `json:"amount"`
		Currency      string            `json:"currency"`
		CustomerEmail string            `json:"customer_email"`
		Metadata      map[string]string `json:"metadata"`
	} `json:"data"`
}

// paymentWebhook receives processor events. Redis claims the event id first
// so a redelivered webhook produces one Kafka message; the order worker's
// processed_events table is the second, durable guard.
func (h *Handler) paymentWebhook(c *gin.Context) {
	var payload paymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": err.Error()})
		return
	}
	if payload.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrCodeValidation, "details": "missing event id"})
		return
	}

	if payload.Type != "checkout.session.completed" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	claimed, err := h.redis.ClaimEvent(c.Request.Context(), payload.ID, 24*time.Hour)
	if err != nil {
		h.logger.Error("Failed to claim webhook event", zap.String("event_id", payload.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrCodeInternal})
		return
	}
	if !claimed {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	event := &models.CheckoutCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   payload.ID,
			EventType: models.EventTypeCheckoutCompleted,
			Timestamp: time.Now(),
		},
		SessionID:   payload.Data.ID,
		LinkID:      payload.Data.Metadata["link_id"],
		BuyerEmail:  payload.Data.CustomerEmail,
		AmountCents: payload.Data.AmountCents,
		Currency:    payload.Data.Currency,
	}
	if err := h.eventPublisher.PublishCheckoutCompleted(c.Request.Context(), event); err != nil {
		h.logger.Error("Failed to publish CheckoutCompleted event",
			zap.String("event_id", payload.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// writeError maps domain errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var bidTooLow *models.BidTooLowError
	var auctionEnded *models.AuctionEndedError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  models.ErrCodeValidation,
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})
	case errors.As(err, &bidTooLow):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              models.ErrCodeBidTooLow,
			"min_required_cents": bidTooLow.MinRequiredCents,
			"highest_cents":      bidTooLow.HighestCents,
		})
	case errors.As(err, &auctionEnded):
		c.JSON(http.StatusGone, gin.H{
			"error":   models.ErrCodeAuctionEnded,
			"auction": auctionEnded.Auction,
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrCodeNotFound})
	case errors.Is(err, models.ErrAuctionNotEnabled):
		c.JSON(http.StatusConflict, gin.H{"error": models.ErrCodeAuctionNotEnabled})
	case errors.Is(err, models.ErrAuctionActive):
		c.JSON(http.StatusConflict, gin.H{"error": models.ErrCodeAuctionActive})
	case errors.Is(err, models.ErrAuctionNoWinner):
		c.JSON(http.StatusGone, gin.H{"error": models.ErrCodeAuctionNoWinner})
	case errors.Is(err, models.ErrLinkExpired):
		c.JSON(http.StatusGone, gin.H{"error": models.ErrCodeLinkExpired})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrCodeInternal})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
