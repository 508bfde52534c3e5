package remote

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
	"github.com/tidwall/sjson"
)

type AnswerService struct {
	Options []option.RequestOption
}

func NewAnswerService(opts ...option.RequestOption) *AnswerService {
	return &AnswerService{opts}
}

func (a *AnswerService) List(ctx context.Context, roomID int64, opts ...option.RequestOption) ([]domain.Answer, error) {
	if roomID <= 0 {
		return nil, ErrMissingIDParameter
	}
	opts = slices.Concat(a.Options, opts, []option.RequestOption{option.WithRoute("/rooms/{id}/answers")})

	var res []byte
	path := fmt.Sprintf("rooms/%d/answers", roomID)
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...); err != nil {
		return nil, mapError(err, nil)
	}
	return decodeAnswers(roomID, res)
}

func (a *AnswerService) New(ctx context.Context, roomID int64, message string, userID int64, opts ...option.RequestOption) error {
	if roomID <= 0 {
		return ErrMissingIDParameter
	}
	opts = slices.Concat(a.Options, opts, []option.RequestOption{option.WithRoute("/answers")})

	body, _ := sjson.SetBytes(nil, "roomId", roomID)
	body, _ = sjson.SetBytes(body, "message", message)
	body, _ = sjson.SetBytes(body, "userId", userID)

	err := requestconfig.ExecuteNewRequest(ctx, http.MethodPost, "answers", body, nil, opts...)
	return mapError(err, nil)
}

func (a *AnswerService) Delete(ctx context.Context, answerID int64, opts ...option.RequestOption) error {
	if answerID <= 0 {
		return ErrMissingIDParameter
	}
	opts = slices.Concat(a.Options, opts, []option.RequestOption{option.WithRoute("/answers/{id}")})

	path := fmt.Sprintf("answers/%d", answerID)
	err := requestconfig.ExecuteNewRequest(ctx, http.MethodDelete, path, nil, nil, opts...)
	return mapError(err, nil)
}
