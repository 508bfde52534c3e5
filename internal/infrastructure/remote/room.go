package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
	"github.com/tidwall/sjson"
)

type RoomService struct {
	Options []option.RequestOption
}

func NewRoomService(opts ...option.RequestOption) *RoomService {
	return &RoomService{opts}
}

func (r *RoomService) List(ctx context.Context, opts ...option.RequestOption) ([]domain.Room, error) {
	opts = slices.Concat(r.Options, opts, []option.RequestOption{option.WithRoute("/rooms")})

	var res []byte
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, "rooms", nil, &res, opts...); err != nil {
		return nil, mapError(err, nil)
	}
	return decodeRooms(res)
}

func (r *RoomService) Search(ctx context.Context, filter domain.SearchFilter, opts ...option.RequestOption) ([]domain.Room, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	opts = slices.Concat(r.Options, opts, []option.RequestOption{option.WithRoute("/rooms/search")})

	query := url.Values{}
	query.Set("query", filter.Query)
	query.Set("type", string(filter.Type))
	path := fmt.Sprintf("rooms/search?%s", query.Encode())

	var res []byte
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...); err != nil {
		return nil, mapError(err, nil)
	}
	return decodeRooms(res)
}

func (r *RoomService) Get(ctx context.Context, id int64, opts ...option.RequestOption) (domain.Room, error) {
	if id <= 0 {
		return domain.Room{}, ErrMissingIDParameter
	}
	opts = slices.Concat(r.Options, opts, []option.RequestOption{option.WithRoute("/rooms/{id}")})

	var res []byte
	path := fmt.Sprintf("rooms/%d", id)
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...); err != nil {
		return domain.Room{}, mapError(err, nil)
	}

	root, err := parseJSON("room", res)
	if err != nil {
		return domain.Room{}, err
	}
	room, err := decodeRoom(root)
	if err != nil {
		return domain.Room{}, err
	}
	if room.ID != id {
		return domain.Room{}, malformed("room", fmt.Errorf("asked for room %d, got %d", id, room.ID))
	}
	return room, nil
}

// New creates a room and returns the server's confirmation message.
func (r *RoomService) New(ctx context.Context, params domain.CreateRoomParams, opts ...option.RequestOption) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	opts = slices.Concat(r.Options, opts, []option.RequestOption{option.WithRoute("/newpost")})

	body, _ := sjson.SetBytes(nil, "title", params.Title)
	body, _ = sjson.SetBytes(body, "message", params.Message)
	body, _ = sjson.SetBytes(body, "creatorId", params.CreatorID)

	var res []byte
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodPost, "newpost", body, &res, opts...); err != nil {
		return "", mapError(err, nil)
	}
	return decodeMessage(res), nil
}
