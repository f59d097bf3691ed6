package round

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/Ralphbruens/Scoreboard/go/internal/models"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// RoundApp defines what the service layer needs from the round application
type RoundApp interface {
	CreateRoom(ctx context.Context, code string, settings *models.RoundSettings) (*Response, error)
	CheckIn(ctx context.Context, code string, field int, name string) (*Response, error)
	SetBonus(ctx context.Context, code string, field int, bonus int) (*Response, error)
	Start(ctx context.Context, code string) (*Response, error)
	Stop(ctx context.Context, code string, field int) (*Response, error)
	PublishResults(ctx context.Context, code string) (*Response, error)
	Refresh(ctx context.Context, code string) (*Response, error)
	Reset(ctx context.Context, code string) (*Response, error)
	State(ctx context.Context, code string) (*StateView, error)
	Export(ctx context.Context, code string) (*ExportDocument, error)
	History(ctx context.Context, code string) ([]models.RaceResult, error)
	TimerRecord(ctx context.Context, code string) (timersync.Record, error)
}

// Service implements the RoundService RPC interface
type Service struct {
	app RoundApp
}

// NewService creates a new round RPC service
func NewService(app RoundApp) *Service {
	return &Service{
		app: app,
	}
}

// Verify that Service implements the RoundServiceHandler interface
var _ RoundServiceHandler = (*Service)(nil)

func (s *Service) CreateRoom(ctx context.Context, req *connect.Request[CreateRoomRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.CreateRoom(ctx, req.Msg.RoomCode, req.Msg.Settings)
	return respond(resp, err)
}

func (s *Service) CheckIn(ctx context.Context, req *connect.Request[CheckInRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.CheckIn(ctx, req.Msg.RoomCode, req.Msg.FieldNumber, req.Msg.Name)
	return respond(resp, err)
}

func (s *Service) SetBonus(ctx context.Context, req *connect.Request[SetBonusRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.SetBonus(ctx, req.Msg.RoomCode, req.Msg.FieldNumber, req.Msg.BonusScore)
	return respond(resp, err)
}

func (s *Service) Start(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.Start(ctx, req.Msg.RoomCode)
	return respond(resp, err)
}

func (s *Service) Stop(ctx context.Context, req *connect.Request[StopRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.Stop(ctx, req.Msg.RoomCode, req.Msg.FieldNumber)
	return respond(resp, err)
}

func (s *Service) PublishResults(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.PublishResults(ctx, req.Msg.RoomCode)
	return respond(resp, err)
}

func (s *Service) Refresh(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.Refresh(ctx, req.Msg.RoomCode)
	return respond(resp, err)
}

func (s *Service) Reset(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[Response], error) {
	resp, err := s.app.Reset(ctx, req.Msg.RoomCode)
	return respond(resp, err)
}

func (s *Service) GetState(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[StateView], error) {
	state, err := s.app.State(ctx, req.Msg.RoomCode)
	return respond(state, err)
}

func (s *Service) Export(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[ExportResponse], error) {
	doc, err := s.app.Export(ctx, req.Msg.RoomCode)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExportResponse{
		Filename: doc.Filename(),
		Document: doc,
	}), nil
}

func (s *Service) ListResults(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[ListResultsResponse], error) {
	results, err := s.app.History(ctx, req.Msg.RoomCode)
	if err != nil {
		return nil, toConnectError(err)
	}
	if results == nil {
		results = []models.RaceResult{}
	}
	return connect.NewResponse(&ListResultsResponse{Results: results}), nil
}

func (s *Service) GetTimer(ctx context.Context, req *connect.Request[RoomRequest]) (*connect.Response[timersync.Record], error) {
	rec, err := s.app.TimerRecord(ctx, req.Msg.RoomCode)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rec), nil
}

func respond[T any](msg *T, err error) (*connect.Response[T], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(msg), nil
}

// toConnectError maps app errors onto RPC codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrFieldOccupied):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, ErrInvalidRoomCode),
		errors.Is(err, ErrInvalidSettings),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrInvalidBonus):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrNoPlayers),
		errors.Is(err, ErrPlayerNotLoaded),
		errors.Is(err, ErrNotRunning),
		errors.Is(err, ErrAlreadyFinished),
		errors.Is(err, ErrWrongStatus):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
