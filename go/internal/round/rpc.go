package round

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/rpcjson"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// RoundServiceName is the fully-qualified name of the RoundService service.
const RoundServiceName = "scoreboard.v1.RoundService"

const (
	RoundServiceCreateRoomProcedure     = "/scoreboard.v1.RoundService/CreateRoom"
	RoundServiceCheckInProcedure        = "/scoreboard.v1.RoundService/CheckIn"
	RoundServiceSetBonusProcedure       = "/scoreboard.v1.RoundService/SetBonus"
	RoundServiceStartProcedure          = "/scoreboard.v1.RoundService/Start"
	RoundServiceStopProcedure           = "/scoreboard.v1.RoundService/Stop"
	RoundServicePublishResultsProcedure = "/scoreboard.v1.RoundService/PublishResults"
	RoundServiceRefreshProcedure        = "/scoreboard.v1.RoundService/Refresh"
	RoundServiceResetProcedure          = "/scoreboard.v1.RoundService/Reset"
	RoundServiceGetStateProcedure       = "/scoreboard.v1.RoundService/GetState"
	RoundServiceExportProcedure         = "/scoreboard.v1.RoundService/Export"
	RoundServiceListResultsProcedure    = "/scoreboard.v1.RoundService/ListResults"
	RoundServiceGetTimerProcedure       = "/scoreboard.v1.RoundService/GetTimer"
)

type CreateRoomRequest struct {
	RoomCode string                `json:"roomCode,omitempty"`
	Settings *models.RoundSettings `json:"settings,omitempty"`
}

type RoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type CheckInRequest struct {
	RoomCode    string `json:"roomCode"`
	FieldNumber int    `json:"fieldNumber"`
	Name        string `json:"name"`
}

type SetBonusRequest struct {
	RoomCode    string `json:"roomCode"`
	FieldNumber int    `json:"fieldNumber"`
	BonusScore  int    `json:"bonusScore"`
}

type StopRequest struct {
	RoomCode    string `json:"roomCode"`
	FieldNumber int    `json:"fieldNumber"`
}

type ExportResponse struct {
	Filename string          `json:"filename"`
	Document *ExportDocument `json:"document"`
}

type ListResultsResponse struct {
	Results []models.RaceResult `json:"results"`
}

// RoundServiceHandler is implemented by the RoundService server.
type RoundServiceHandler interface {
	CreateRoom(context.Context, *connect.Request[CreateRoomRequest]) (*connect.Response[Response], error)
	CheckIn(context.Context, *connect.Request[CheckInRequest]) (*connect.Response[Response], error)
	SetBonus(context.Context, *connect.Request[SetBonusRequest]) (*connect.Response[Response], error)
	Start(context.Context, *connect.Request[RoomRequest]) (*connect.Response[Response], error)
	Stop(context.Context, *connect.Request[StopRequest]) (*connect.Response[Response], error)
	PublishResults(context.Context, *connect.Request[RoomRequest]) (*connect.Response[Response], error)
	Refresh(context.Context, *connect.Request[RoomRequest]) (*connect.Response[Response], error)
	Reset(context.Context, *connect.Request[RoomRequest]) (*connect.Response[Response], error)
	GetState(context.Context, *connect.Request[RoomRequest]) (*connect.Response[StateView], error)
	Export(context.Context, *connect.Request[RoomRequest]) (*connect.Response[ExportResponse], error)
	ListResults(context.Context, *connect.Request[RoomRequest]) (*connect.Response[ListResultsResponse], error)
	GetTimer(context.Context, *connect.Request[RoomRequest]) (*connect.Response[timersync.Record], error)
}

// NewRoundServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewRoundServiceHandler(svc RoundServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = rpcjson.HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(RoundServiceCreateRoomProcedure, connect.NewUnaryHandler(RoundServiceCreateRoomProcedure, svc.CreateRoom, opts...))
	mux.Handle(RoundServiceCheckInProcedure, connect.NewUnaryHandler(RoundServiceCheckInProcedure, svc.CheckIn, opts...))
	mux.Handle(RoundServiceSetBonusProcedure, connect.NewUnaryHandler(RoundServiceSetBonusProcedure, svc.SetBonus, opts...))
	mux.Handle(RoundServiceStartProcedure, connect.NewUnaryHandler(RoundServiceStartProcedure, svc.Start, opts...))
	mux.Handle(RoundServiceStopProcedure, connect.NewUnaryHandler(RoundServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(RoundServicePublishResultsProcedure, connect.NewUnaryHandler(RoundServicePublishResultsProcedure, svc.PublishResults, opts...))
	mux.Handle(RoundServiceRefreshProcedure, connect.NewUnaryHandler(RoundServiceRefreshProcedure, svc.Refresh, opts...))
	mux.Handle(RoundServiceResetProcedure, connect.NewUnaryHandler(RoundServiceResetProcedure, svc.Reset, opts...))
	mux.Handle(RoundServiceGetStateProcedure, connect.NewUnaryHandler(RoundServiceGetStateProcedure, svc.GetState, opts...))
	mux.Handle(RoundServiceExportProcedure, connect.NewUnaryHandler(RoundServiceExportProcedure, svc.Export, opts...))
	mux.Handle(RoundServiceListResultsProcedure, connect.NewUnaryHandler(RoundServiceListResultsProcedure, svc.ListResults, opts...))
	mux.Handle(RoundServiceGetTimerProcedure, connect.NewUnaryHandler(RoundServiceGetTimerProcedure, svc.GetTimer, opts...))
	return "/" + RoundServiceName + "/", mux
}

// RoundServiceClient is a client for the RoundService service.
type RoundServiceClient struct {
	createRoom     *connect.Client[CreateRoomRequest, Response]
	checkIn        *connect.Client[CheckInRequest, Response]
	setBonus       *connect.Client[SetBonusRequest, Response]
	start          *connect.Client[RoomRequest, Response]
	stop           *connect.Client[StopRequest, Response]
	publishResults *connect.Client[RoomRequest, Response]
	refresh        *connect.Client[RoomRequest, Response]
	reset          *connect.Client[RoomRequest, Response]
	getState       *connect.Client[RoomRequest, StateView]
	export         *connect.Client[RoomRequest, ExportResponse]
	listResults    *connect.Client[RoomRequest, ListResultsResponse]
	getTimer       *connect.Client[RoomRequest, timersync.Record]
}

// NewRoundServiceClient constructs a client for the RoundService service.
func NewRoundServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RoundServiceClient {
	opts = rpcjson.ClientOptions(opts...)
	return &RoundServiceClient{
		createRoom:     connect.NewClient[CreateRoomRequest, Response](httpClient, baseURL+RoundServiceCreateRoomProcedure, opts...),
		checkIn:        connect.NewClient[CheckInRequest, Response](httpClient, baseURL+RoundServiceCheckInProcedure, opts...),
		setBonus:       connect.NewClient[SetBonusRequest, Response](httpClient, baseURL+RoundServiceSetBonusProcedure, opts...),
		start:          connect.NewClient[RoomRequest, Response](httpClient, baseURL+RoundServiceStartProcedure, opts...),
		stop:           connect.NewClient[StopRequest, Response](httpClient, baseURL+RoundServiceStopProcedure, opts...),
		publishResults: connect.NewClient[RoomRequest, Response](httpClient, baseURL+RoundServicePublishResultsProcedure, opts...),
		refresh:        connect.NewClient[RoomRequest, Response](httpClient, baseURL+RoundServiceRefreshProcedure, opts...),
		reset:          connect.NewClient[RoomRequest, Response](httpClient, baseURL+RoundServiceResetProcedure, opts...),
		getState:       connect.NewClient[RoomRequest, StateView](httpClient, baseURL+RoundServiceGetStateProcedure, opts...),
		export:         connect.NewClient[RoomRequest, ExportResponse](httpClient, baseURL+RoundServiceExportProcedure, opts...),
		listResults:    connect.NewClient[RoomRequest, ListResultsResponse](httpClient, baseURL+RoundServiceListResultsProcedure, opts...),
		getTimer:       connect.NewClient[RoomRequest, timersync.Record](httpClient, baseURL+RoundServiceGetTimerProcedure, opts...),
	}
}

func (c *RoundServiceClient) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*Response, error) {
	return unary(ctx, c.createRoom, req)
}

func (c *RoundServiceClient) CheckIn(ctx context.Context, req *CheckInRequest) (*Response, error) {
	return unary(ctx, c.checkIn, req)
}

func (c *RoundServiceClient) SetBonus(ctx context.Context, req *SetBonusRequest) (*Response, error) {
	return unary(ctx, c.setBonus, req)
}

func (c *RoundServiceClient) Start(ctx context.Context, req *RoomRequest) (*Response, error) {
	return unary(ctx, c.start, req)
}

func (c *RoundServiceClient) Stop(ctx context.Context, req *StopRequest) (*Response, error) {
	return unary(ctx, c.stop, req)
}

func (c *RoundServiceClient) PublishResults(ctx context.Context, req *RoomRequest) (*Response, error) {
	return unary(ctx, c.publishResults, req)
}

func (c *RoundServiceClient) Refresh(ctx context.Context, req *RoomRequest) (*Response, error) {
	return unary(ctx, c.refresh, req)
}

func (c *RoundServiceClient) Reset(ctx context.Context, req *RoomRequest) (*Response, error) {
	return unary(ctx, c.reset, req)
}

func (c *RoundServiceClient) GetState(ctx context.Context, req *RoomRequest) (*StateView, error) {
	return unary(ctx, c.getState, req)
}

func (c *RoundServiceClient) Export(ctx context.Context, req *RoomRequest) (*ExportResponse, error) {
	return unary(ctx, c.export, req)
}

func (c *RoundServiceClient) ListResults(ctx context.Context, req *RoomRequest) (*ListResultsResponse, error) {
	return unary(ctx, c.listResults, req)
}

func (c *RoundServiceClient) GetTimer(ctx context.Context, req *RoomRequest) (*timersync.Record, error) {
	return unary(ctx, c.getTimer, req)
}

func unary[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
