package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/service"
)

const checkoutCookieName = "checkout_id"

// checkoutCookieMaxAge matches the session store TTL.
const checkoutCookieMaxAge = 24 * 60 * 60

const widgetContainerHTML = `<div id="klarna_container"></div>`

// CheckoutHandler drives the payment-session lifecycle for the storefront:
// session establishment on page load, refresh on cart recalculation, and
// the gateway-availability check.
type CheckoutHandler struct {
	sessions  *service.SessionService
	settings  *service.SettingsService
	sanitizer *bluemonday.Policy
}

func NewCheckoutHandler(sessions *service.SessionService, settings *service.SettingsService) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:  sessions,
		settings:  settings,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// checkoutID reads the shopper's checkout cookie, issuing a fresh one when
// absent so the session store has a stable key for this checkout.
func checkoutID(c *gin.Context) string {
	if id, err := c.Cookie(checkoutCookieName); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(checkoutCookieName, id, checkoutCookieMaxAge, "/", "", false, true)
	return id
}

// Session establishes the payment session for the checkout render and
// returns the widget bootstrap data.
func (h *CheckoutHandler) Session(c *gin.Context) {
	if !h.settings.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Klarna Payments is not available"})
		return
	}

	id := checkoutID(c)
	paymentSession, err := h.sessions.EnsureSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Could not create Klarna session, please refresh the page to try again",
		})
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(paymentSession))
}

// Refresh updates the session after a cart recalculation (shipping method
// change, coupon, quantity edit). It always routes through the
// update-or-recreate path.
func (h *CheckoutHandler) Refresh(c *gin.Context) {
	if !h.settings.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Klarna Payments is not available"})
		return
	}

	id := checkoutID(c)
	paymentSession, err := h.sessions.RefreshSession(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Could not update Klarna session, please refresh the page to try again",
		})
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(paymentSession))
}

// Available reports whether the gateway may be offered as a payment option
// for this checkout. A session error recorded for the checkout disables it.
func (h *CheckoutHandler) Available(c *gin.Context) {
	id := checkoutID(c)
	available := h.settings.Available() && h.sessions.Errored(id) == nil
	c.JSON(http.StatusOK, gin.H{"available": available})
}

func (h *CheckoutHandler) sessionResponse(paymentSession *service.PaymentSession) models.CheckoutSessionResponse {
	settings := h.settings.Settings()

	description := settings.Description
	if settings.TestMode {
		description += " <p>TEST MODE ENABLED.</p>"
	}

	return models.CheckoutSessionResponse{
		ClientToken:   paymentSession.ClientToken,
		TestMode:      settings.TestMode,
		Title:         settings.Title,
		Description:   h.sanitizer.Sanitize(description),
		ContainerHTML: widgetContainerHTML,
	}
}
