package public

import (
	"strings"

	"github.com/postback-hub/internal/constants"
	handlershared "github.com/postback-hub/internal/http/handlers/shared"
	"github.com/postback-hub/internal/http/response"
	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
)

// ReceivePostback 合作方转化回调入口
func (h *Handler) ReceivePostback(c *gin.Context) {
	log := requestLog(c).With("endpoint", c.Param("endpoint"))
	params, err := parsePostbackParams(c, h.Config.Postback.MaxBodyBytes)
	if err != nil {
		log.Infow("postback_rejected",
			"stage", constants.PostbackStageReceived,
			"content_type", c.ContentType(),
			"error", err,
		)
		respondWithMappedError(c, err, postbackErrorRules, response.CodeBadRequest, "request body invalid")
		return
	}

	result, err := h.PostbackService.Ingest(c.Request.Context(), service.PostbackInput{
		RequestID:    handlershared.RequestID(c),
		EndpointPath: c.Param("endpoint"),
		Params:       params,
		Token:        c.GetHeader(constants.PostbackTokenHeader),
	})
	if err != nil {
		respondWithMappedError(c, err, postbackErrorRules, response.CodeInternal, "internal error")
		return
	}

	log.Debugw("postback_stage",
		"stage", constants.PostbackStageAcknowledged,
		"partner_code", result.Partner.Code,
		"conversion_id", result.ConversionID,
		"duplicate", result.Duplicate,
	)
	if h.ackFormat(result.Partner) == constants.AckFormatText {
		response.Text(c, constants.AckTextOK)
		return
	}
	response.Success(c, gin.H{
		"conversion_id": result.ConversionID,
		"duplicate":     result.Duplicate,
	})
}

func (h *Handler) ackFormat(partner *service.PartnerEntry) string {
	if partner != nil && strings.TrimSpace(partner.AckFormat) != "" {
		return partner.AckFormat
	}
	if h.Config != nil && h.Config.Postback.DefaultAckFormat != "" {
		return h.Config.Postback.DefaultAckFormat
	}
	return constants.AckFormatJSON
}
