package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.im.roomgate/internal/middleware"
	"sudooom.im.roomgate/internal/model"
	"sudooom.im.roomgate/internal/service"
	appErrors "sudooom.im.roomgate/pkg/errors"
	"sudooom.im.roomgate/pkg/response"
)

// RoomService 房间访问服务
type RoomService interface {
	CheckRoomAccess(ctx context.Context, params service.CheckRoomAccessParams) (*service.AccessResult, error)
	ListRoomMembers(ctx context.Context, params service.ListRoomMembersParams) (*model.MemberPage, error)
}

// RoomHandler 房间 HTTP 处理器
type RoomHandler struct {
	roomService RoomService
	logger      *slog.Logger
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(roomService RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		logger:      slog.Default().With("component", "RoomHandler"),
	}
}

// CheckRoomAccessRequest 访问检查请求
type CheckRoomAccessRequest struct {
	RoomID    string         `json:"rid"`
	ExtraData map[string]any `json:"extraData"`
}

// CheckRoomAccess 检查当前用户能否访问房间（已废弃，由功能开关控制是否注册）
// @Summary      检查房间访问权限（已废弃）
// @Description  允许时返回房间，拒绝时 data 为 false
// @Tags         房间
// @Accept       json
// @Produce      json
// @Param        request  body      CheckRoomAccessRequest  true  "房间 ID 与附加数据"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Security     BearerAuth
// @Router       /rooms/access [post]
func (h *RoomHandler) CheckRoomAccess(c *gin.Context) {
	var req CheckRoomAccessRequest
	// 空请求体按空请求处理，缺少 rid 时由服务返回 InvalidRoom
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.ErrInvalidParams.WithMessage(err.Error()).WithMethod(service.MethodCanAccessRoom))
		return
	}

	userID := middleware.GetUserID(c)
	h.logger.Warn("Deprecated method called",
		"method", service.MethodCanAccessRoom,
		"userId", userID,
		"roomId", req.RoomID)

	result, err := h.roomService.CheckRoomAccess(c.Request.Context(), service.CheckRoomAccessParams{
		RoomID: req.RoomID,
		UserID: userID,
		Extra:  req.ExtraData,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, accessResultData(result))
}

// ListMembers 查询房间成员
// @Summary      房间成员列表
// @Description  total 与 records 使用相同的过滤条件，total 不受分页影响
// @Tags         房间
// @Produce      json
// @Param        rid      path      string  true   "房间 ID"
// @Param        showAll  query     bool    false  "包含离线成员"
// @Param        limit    query     int     false  "每页数量，0 表示不限"
// @Param        skip     query     int     false  "跳过数量"
// @Param        filter   query     string  false  "按用户名或显示名过滤"
// @Success      200      {object}  response.Response{data=model.MemberPage}
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Security     BearerAuth
// @Router       /rooms/{rid}/members [get]
func (h *RoomHandler) ListMembers(c *gin.Context) {
	params := service.ListRoomMembersParams{
		RoomID: c.Param("rid"),
		UserID: middleware.GetUserID(c),
		Filter: c.Query("filter"),
	}

	var err error
	if params.IncludeOffline, err = queryBool(c, "showAll"); err != nil {
		response.Error(c, invalidParam("showAll"))
		return
	}
	if params.Limit, err = queryInt(c, "limit"); err != nil {
		response.Error(c, invalidParam("limit"))
		return
	}
	if params.Skip, err = queryInt(c, "skip"); err != nil {
		response.Error(c, invalidParam("skip"))
		return
	}

	page, err := h.roomService.ListRoomMembers(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, page)
}

// accessResultData 允许时返回房间，拒绝时返回字面量 false
func accessResultData(result *service.AccessResult) any {
	if result == nil || !result.Allowed {
		return false
	}
	return result.Room
}

func invalidParam(name string) *appErrors.AppError {
	return appErrors.ErrInvalidParams.
		WithMessage("Invalid parameter: " + name).
		WithMethod(service.MethodGetUsersOfRoom)
}

// queryInt 解析整数查询参数，未提供时返回 0
func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
