package gateway

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/Ralphbruens/Scoreboard/go/internal/round"
	"github.com/Ralphbruens/Scoreboard/go/internal/timersync"
)

// StateProvider defines what the gateway needs to read about a room
type StateProvider interface {
	GetState(ctx context.Context, req *round.RoomRequest) (*round.StateView, error)
	Export(ctx context.Context, req *round.RoomRequest) (*round.ExportResponse, error)
	GetTimer(ctx context.Context, req *round.RoomRequest) (*timersync.Record, error)
}

// The RPC client reads rooms when the gateway runs as its own process.
var _ StateProvider = (*round.RoundServiceClient)(nil)

// AppStateProvider reads rooms from an in-process round app.
type AppStateProvider struct {
	app *round.App
}

func NewAppStateProvider(app *round.App) *AppStateProvider {
	return &AppStateProvider{app: app}
}

func (p *AppStateProvider) GetState(ctx context.Context, req *round.RoomRequest) (*round.StateView, error) {
	return p.app.State(ctx, req.RoomCode)
}

func (p *AppStateProvider) Export(ctx context.Context, req *round.RoomRequest) (*round.ExportResponse, error) {
	doc, err := p.app.Export(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return &round.ExportResponse{Filename: doc.Filename(), Document: doc}, nil
}

func (p *AppStateProvider) GetTimer(ctx context.Context, req *round.RoomRequest) (*timersync.Record, error) {
	rec, err := p.app.TimerRecord(ctx, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// isNotFound reports whether err means the room does not exist, whichever
// provider produced it.
func isNotFound(err error) bool {
	return errors.Is(err, round.ErrRoomNotFound) ||
		errors.Is(err, round.ErrInvalidRoomCode) ||
		connect.CodeOf(err) == connect.CodeNotFound ||
		connect.CodeOf(err) == connect.CodeInvalidArgument
}

// ProviderFetcher reads timer records through a StateProvider, so a gateway
// without database access can still refresh rooms on a notification.
type ProviderFetcher struct {
	Provider StateProvider
}

var _ timersync.Fetcher = ProviderFetcher{}

func (f ProviderFetcher) FetchTimer(ctx context.Context, room string) (timersync.Record, error) {
	rec, err := f.Provider.GetTimer(ctx, &round.RoomRequest{RoomCode: room})
	if err != nil {
		if isNotFound(err) {
			return timersync.Record{}, timersync.ErrNoRecord
		}
		return timersync.Record{}, err
	}
	return *rec, nil
}
