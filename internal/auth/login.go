package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/resalehub/internal/utils"
)

type LoginRequest struct {
	PublicKey string `json:"public_key"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
	Role    string `json:"role"`
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil || req.Nonce == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	pub, err := ParsePublicKey(req.PublicKey)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(req.Signature, "0x"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "signature must be 64 hex-encoded bytes"})
	}

	// consume first so a bad signature still burns the nonce
	if !h.challenges.Consume(req.Nonce, h.now()) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown or expired nonce"})
	}
	if !ed25519.Verify(pub, []byte(ChallengeMessage(req.Nonce)), sig) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	addr := Address(pub)
	role := utils.RoleTrader
	if h.isArbiter != nil && h.isArbiter(addr) {
		role = utils.RoleArbiter
	}
	signed, err := utils.IssueToken(h.secret, addr, role, h.ttl, h.now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: signed, Address: addr, Role: role})
}
