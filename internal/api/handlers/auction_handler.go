package handlers

import (
	"context"
	"net/http"

	"domain-auction/internal/api/middleware"
	"domain-auction/internal/domain"
	"domain-auction/internal/services"
	"domain-auction/pkg/apperrors"
	"domain-auction/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AuctionService is the part of services.AuctionService the handlers call.
type AuctionService interface {
	ListActive(ctx context.Context) ([]*services.AuctionListing, error)
	Get(ctx context.Context, auctionID string) (*services.AuctionListing, error)
	BidHistory(ctx context.Context, auctionID string) ([]*services.BidListing, error)
	CreateAuction(ctx context.Context, callerID string, in services.CreateAuctionInput) (*domain.Auction, error)
	PlaceBid(ctx context.Context, callerID, auctionID string, amount *decimal.Decimal) (*domain.Auction, *domain.Bid, error)
	EndAuction(ctx context.Context, callerID, auctionID string) (*domain.Auction, error)
}

type AuctionHandler struct {
	service AuctionService
	log     logger.Logger
}

func NewAuctionHandler(service AuctionService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		service: service,
		log:     log,
	}
}

// Register mounts the uniform action endpoint and the REST routes on an
// authenticated group.
func (h *AuctionHandler) Register(g *echo.Group) {
	g.POST("/auction", h.HandleAction)
	g.GET("/auctions", h.ListAuctions)
	g.POST("/auctions", h.CreateAuction)
	g.GET("/auctions/:id", h.GetAuction)
	g.GET("/auctions/:id/bids", h.GetBids)
	g.POST("/auctions/:id/bids", h.PlaceBid)
	g.POST("/auctions/:id/end", h.EndAuction)
}

// HandleAction dispatches {action: list|create|bid|end}.
func (h *AuctionHandler) HandleAction(c echo.Context) error {
	req, err := bindRequest(c)
	if err != nil {
		return h.fail(c, err)
	}

	switch req.Action {
	case "list":
		return h.list(c)
	case "create":
		return h.create(c, req)
	case "bid":
		return h.bid(c, req.AuctionID, req.BidAmount)
	case "end":
		return h.end(c, req.AuctionID)
	case "":
		return h.fail(c, apperrors.Validation("action is required"))
	default:
		return h.fail(c, apperrors.Validation("unknown action: "+req.Action))
	}
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	return h.list(c)
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	req, err := bindRequest(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.create(c, req)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	listing, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"auction": toAuctionResponse(listing)})
}

func (h *AuctionHandler) GetBids(c echo.Context) error {
	listings, err := h.service.BidHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	bids := make([]BidResponse, 0, len(listings))
	for _, l := range listings {
		bids = append(bids, toBidResponse(l))
	}
	return ok(c, http.StatusOK, echo.Map{"bids": bids})
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	req, err := bindRequest(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.bid(c, c.Param("id"), req.BidAmount)
}

func (h *AuctionHandler) EndAuction(c echo.Context) error {
	return h.end(c, c.Param("id"))
}

func (h *AuctionHandler) list(c echo.Context) error {
	listings, err := h.service.ListActive(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	auctions := make([]AuctionResponse, 0, len(listings))
	for _, l := range listings {
		auctions = append(auctions, toAuctionResponse(l))
	}
	return ok(c, http.StatusOK, echo.Map{"auctions": auctions})
}

func (h *AuctionHandler) create(c echo.Context, req *ActionRequest) error {
	auction, err := h.service.CreateAuction(c.Request().Context(), middleware.CallerID(c), req.createInput())
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"auction": toAuctionResponse(&services.AuctionListing{Auction: auction})})
}

func (h *AuctionHandler) bid(c echo.Context, auctionID string, amount *decimal.Decimal) error {
	auction, bid, err := h.service.PlaceBid(c.Request().Context(), middleware.CallerID(c), auctionID, amount)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"auction": toAuctionResponse(&services.AuctionListing{Auction: auction}),
		"bid":     toBidResponse(&services.BidListing{Bid: bid}),
	})
}

func (h *AuctionHandler) end(c echo.Context, auctionID string) error {
	auction, err := h.service.EndAuction(c.Request().Context(), middleware.CallerID(c), auctionID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"auction": toAuctionResponse(&services.AuctionListing{Auction: auction})})
}

func bindRequest(c echo.Context) (*ActionRequest, error) {
	var req ActionRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid request body: numbers must be numeric")
	}
	return &req, nil
}

func (h *AuctionHandler) fail(c echo.Context, err error) error {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "method", c.Request().Method, "path", c.Path(),
			"caller_id", middleware.CallerID(c), "error", err)
	}
	return c.JSON(status, echo.Map{"error": apperrors.PublicMessage(err)})
}

func ok(c echo.Context, status int, payload echo.Map) error {
	payload["success"] = true
	return c.JSON(status, payload)
}
