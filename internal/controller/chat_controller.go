package controller

import (
	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/serverutils"
	"smartshop-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	GetCart(ctx *fiber.Ctx) error
	AddToCart(ctx *fiber.Ctx) error
	ClearCart(ctx *fiber.Ctx) error
	ResetConversation(ctx *fiber.Ctx) error
	SubmitFeedback(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.SendMessage)
	r.Get("/cart", c.GetCart)
	r.Post("/cart/add", c.AddToCart)
	r.Delete("/cart/clear", c.ClearCart)
	r.Post("/conversation/reset", c.ResetConversation)
	r.Post("/feedback", c.SubmitFeedback)
	r.Get("/health", c.Health)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) GetCart(ctx *fiber.Ctx) error {
	var q dto.CartQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	if err := serverutils.ValidateRequest(q); err != nil {
		return err
	}

	res, err := c.chatService.GetCart(ctx.UserContext(), q.ConversationId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get cart", res))
}

func (c *chatController) AddToCart(ctx *fiber.Ctx) error {
	var req dto.AddToCartRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.AddToCart(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success add to cart", res))
}

func (c *chatController) ClearCart(ctx *fiber.Ctx) error {
	var q dto.CartQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	if err := serverutils.ValidateRequest(q); err != nil {
		return err
	}

	res, err := c.chatService.ClearCart(ctx.UserContext(), q.ConversationId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear cart", res))
}

func (c *chatController) ResetConversation(ctx *fiber.Ctx) error {
	var req dto.ResetConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.ResetConversation(ctx.UserContext(), req.ConversationId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success reset conversation", nil))
}

func (c *chatController) SubmitFeedback(ctx *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SubmitFeedback(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Thanks for your feedback", res))
}

func (c *chatController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", c.chatService.Health(ctx.UserContext())))
}
