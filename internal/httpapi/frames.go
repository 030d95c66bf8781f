package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/park285/cheese-frames/internal/hubclient"
	"github.com/park285/cheese-frames/internal/orchestrator"
	"github.com/park285/cheese-frames/pkg/chessdto"
	"go.uber.org/zap"
)

func (h *Handler) frameView(c *fiber.Ctx) error {
	res, err := h.orch.FrameView(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return h.sendFrame(c, res)
}

// frameAction resolves the acting identity, either from the unverified body or
// from the hub when validation is configured, and applies the button press.
func (h *Handler) frameAction(c *fiber.Ctx) error {
	var req chessdto.FrameActionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	act := &hubclient.Action{
		FID:         req.UntrustedData.FID,
		ButtonIndex: req.UntrustedData.ButtonIndex,
		InputText:   req.UntrustedData.InputText,
		State:       req.UntrustedData.State,
		URL:         req.UntrustedData.URL,
	}
	if h.hub != nil {
		if req.TrustedData.MessageBytes == "" {
			return chessdto.NewError(chessdto.CodeInvalidArgument, "trustedData.messageBytes is required")
		}
		verified, err := h.hub.Validate(c.UserContext(), req.TrustedData.MessageBytes)
		if err != nil {
			h.logger.Warn("frame_validation_failed", zap.Error(err))
			return chessdto.NewError(chessdto.CodeInvalidArgument, err.Error())
		}
		act = verified
	}

	identity := ""
	if act.FID != 0 {
		identity = act.IdentityID()
	}
	res, err := h.orch.HandleFrameAction(c.UserContext(), orchestrator.FrameAction{
		IdentityID:  identity,
		DisplayName: identity,
		ButtonIndex: act.ButtonIndex,
		InputText:   act.InputText,
		State:       act.State,
	})
	if err != nil {
		return err
	}
	return h.sendFrame(c, res)
}

func (h *Handler) sendFrame(c *fiber.Ctx, res *orchestrator.FrameResult) error {
	page, err := h.presenter.Render(h.presenter.Build(res))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page)
}
