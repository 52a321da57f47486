package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	certapp "github.com/certify/backend/internal/application/certificate"
	"github.com/certify/backend/internal/infrastructure/logger"
	"github.com/certify/backend/internal/interfaces/http/dto"
	"github.com/certify/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CertificateIssuer is the application service behind the certificate endpoints
type CertificateIssuer interface {
	Issue(ctx context.Context, req certapp.IssueRequest) (*certapp.IssueResult, error)
	Lookup(ctx context.Context, id string) (*certapp.RecipientResponse, error)
}

// CertificateHandler handles certificate issuance endpoints
type CertificateHandler struct {
	BaseHandler
	issuer CertificateIssuer
}

// NewCertificateHandler creates a new CertificateHandler
func NewCertificateHandler(issuer CertificateIssuer) *CertificateHandler {
	return &CertificateHandler{issuer: issuer}
}

// Issue godoc
// @ID           issueCertificate
// @Summary      Issue a certificate
// @Description  Records the recipient, renders the certificate and publishes the PDF
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Param        request body dto.IssueCertificateRequest true "Recipient"
// @Success      201 {object} dto.IssueCertificateResponse
// @Failure      400 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /certificates [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	var req dto.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		case errors.Is(err, io.EOF):
			h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is empty")
		default:
			h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		}
		return
	}

	ctx := logger.WithRecipientID(c.Request.Context(), req.ID)
	c.Request = c.Request.WithContext(ctx)

	result, err := h.issuer.Issue(ctx, certapp.IssueRequest{
		ID:    req.ID,
		Name:  req.Name,
		Grade: req.Grade,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.L(ctx).Info("Certificate issued", zap.String("url", result.URL))
	c.JSON(http.StatusCreated, dto.IssueCertificateResponse{
		Message: result.Message,
		URL:     result.URL,
	})
}

// Get godoc
// @ID           getCertificate
// @Summary      Get an issued certificate
// @Tags         certificates
// @Produce      json
// @Param        id path string true "Recipient ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	id := c.Param("id")
	ctx := logger.WithRecipientID(c.Request.Context(), id)

	rec, err := h.issuer.Lookup(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.CertificateResponse{
		ID:    rec.ID,
		Name:  rec.Name,
		Grade: rec.Grade,
		URL:   rec.URL,
	})
}

// CertificateRoutes creates the route group for certificate endpoints
func CertificateRoutes(h *CertificateHandler, middleware ...gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("certificates", "/certificates")
	group.Use(middleware...)

	group.POST("", h.Issue)
	group.GET("/:id", h.Get)

	return group
}
