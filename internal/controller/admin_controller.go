package controller

import (
	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/serverutils"
	"smartshop-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ReindexCatalog(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	DeleteDocument(ctx *fiber.Ctx) error
	ListDocuments(ctx *fiber.Ctx) error
	SearchTest(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Usage(ctx *fiber.Ctx) error
	ResetUsage(ctx *fiber.Ctx) error
	Models(ctx *fiber.Ctx) error
	SwitchModel(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
}

type adminController struct {
	adminService service.IAdminService
	auth         fiber.Handler
}

// NewAdminController protects every admin route with auth.
func NewAdminController(adminService service.IAdminService, auth fiber.Handler) IAdminController {
	return &adminController{
		adminService: adminService,
		auth:         auth,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(c.auth)
	h.Post("/catalog/reindex", c.ReindexCatalog)
	h.Get("/documents", c.ListDocuments)
	h.Post("/documents", c.UploadDocument)
	h.Delete("/documents/:id", c.DeleteDocument)
	h.Post("/search-test", c.SearchTest)
	h.Get("/stats", c.Stats)
	h.Get("/usage", c.Usage)
	h.Post("/usage/reset", c.ResetUsage)
	h.Get("/models", c.Models)
	h.Post("/switch-model", c.SwitchModel)
	h.Get("/logs", c.Logs)
}

func (c *adminController) ReindexCatalog(ctx *fiber.Ctx) error {
	res, err := c.adminService.ReindexCatalog(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Catalog reindex queued", res))
}

func (c *adminController) UploadDocument(ctx *fiber.Ctx) error {
	var req dto.UploadDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if req.UploadedBy == "" {
		if adminId, ok := ctx.Locals("admin_id").(string); ok {
			req.UploadedBy = adminId
		}
	}

	res, err := c.adminService.UploadDocument(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document indexing queued", res))
}

func (c *adminController) DeleteDocument(ctx *fiber.Ctx) error {
	res, err := c.adminService.DeleteDocument(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete document", res))
}

func (c *adminController) ListDocuments(ctx *fiber.Ctx) error {
	res, err := c.adminService.ListDocuments(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get documents", res))
}

func (c *adminController) SearchTest(ctx *fiber.Ctx) error {
	var req dto.SearchTestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.adminService.SearchTest(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}

func (c *adminController) Stats(ctx *fiber.Ctx) error {
	res, err := c.adminService.Stats(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get index stats", res))
}

func (c *adminController) Usage(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get usage", c.adminService.Usage(ctx.UserContext())))
}

func (c *adminController) ResetUsage(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Usage statistics reset", c.adminService.ResetUsage(ctx.UserContext())))
}

func (c *adminController) Models(ctx *fiber.Ctx) error {
	res, err := c.adminService.Models(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get models", res))
}

func (c *adminController) SwitchModel(ctx *fiber.Ctx) error {
	var req dto.SwitchModelRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.adminService.SwitchModel(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Switched to "+res.Name, res))
}

func (c *adminController) Logs(ctx *fiber.Ctx) error {
	var q dto.LogQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	if err := serverutils.ValidateRequest(q); err != nil {
		return err
	}

	res, err := c.adminService.Logs(ctx.UserContext(), &q)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", res))
}
