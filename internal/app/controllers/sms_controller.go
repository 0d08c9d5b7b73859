package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"

	"relief-http-service/internal/domain/services"
	"relief-http-service/internal/app/middleware"
	"relief-http-service/internal/domain/services/container"
	"relief-http-service/internal/error/code"
	"relief-http-service/internal/error/response"
	"relief-http-service/pkg/logger"
)

const (
	smsReceivedFormat = "Your request has been received and logged. \nA volunteer will verify it soon. \nYour Report ID: %s"
	smsFailed         = "We apologize, there was an error processing your request. Please try again."
	smsEmpty          = "We could not read your message. Please reply with what you need and where you are."
	smsThrottled      = "We are receiving many messages from your number. Please wait a minute and send your request again."
)

// InterfaceSMSController defines the SMS webhook controller interface
type InterfaceSMSController interface {
	Receive()
	Throttled()
}

// SMSController handles the inbound SMS webhook
type SMSController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewSMSController creates a new SMS controller
func NewSMSController(ctx *gin.Context, container *container.ServiceContainer) *SMSController {
	return &SMSController{
		Ctx:       ctx,
		Container: container,
	}
}

// SMSRequest is the webhook form body
type SMSRequest struct {
	From string `form:"From" example:"+15551234567"`
	Body string `form:"Body" example:"Need medical help at Koregaon Park urgently"`
}

// HandleSMSFunc returns a Gin handler for SMS webhook requests
func HandleSMSFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewSMSController(ctx, container)

		switch method {
		case "receive":
			controller.Receive()
		case "throttled":
			controller.Throttled()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// 1. Receive ingests an inbound message and replies with TwiML
// @Summary      Receive SMS
// @Description  Twilio webhook. Triage and geocode the message, store it as an Unverified need and reply with the report id
// @Tags         SMS
// @Accept       x-www-form-urlencoded
// @Produce      xml
// @Param        From formData string false "Sender number"
// @Param        Body formData string false "Message text"
// @Success      200  {string}  string  "TwiML reply"
// @Failure      403  {string}  string  "Invalid signature"
// @Failure      500  {string}  string  "TwiML apology"
// @Router       /sms [post]
func (c *SMSController) Receive() {
	var req SMSRequest
	if err := c.Ctx.ShouldBind(&req); err != nil {
		logger.Warning("[SMS] malformed webhook body: %v", err)
	}
	logger.Info("[SMS] incoming message from %s", req.From)

	ctx := services.WithActor(c.Ctx.Request.Context(), "sms")
	ctx = services.WithClientIP(ctx, c.Ctx.ClientIP())

	intake := c.Container.GetService("intake").(services.InterfaceIntakeService)
	result, err := intake.Ingest(ctx, req.From, req.Body)
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		c.reply(http.StatusOK, smsEmpty)
	case err != nil:
		logger.Error("[SMS] intake failed: %v", err)
		c.reply(http.StatusInternalServerError, smsFailed)
	default:
		logger.Info("[SMS] need %s stored via %s triage", result.Need.ID.Hex(), result.Triage.Source)
		middleware.PurgeCache()
		c.reply(http.StatusOK, receivedMessage(result.Need.ID.Hex()))
	}
}

// 2. Throttled answers a sender over the webhook rate limit. Nothing is
// stored, so the reply asks for the message again.
func (c *SMSController) Throttled() {
	logger.Warning("[SMS] rate limit hit for %s", c.Ctx.PostForm("From"))
	c.reply(http.StatusOK, smsThrottled)
}

func (c *SMSController) reply(status int, message string) {
	body, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: message}})
	if err != nil {
		logger.Error("[SMS] failed to build TwiML reply: %v", err)
		c.Ctx.String(http.StatusInternalServerError, smsFailed)
		return
	}
	c.Ctx.Data(status, "text/xml; charset=utf-8", []byte(body))
}

func receivedMessage(id string) string {
	return fmt.Sprintf(smsReceivedFormat, id)
}
