package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
	"github.com/tidwall/sjson"
)

type VoteService struct {
	Options []option.RequestOption
}

func NewVoteService(opts ...option.RequestOption) *VoteService {
	return &VoteService{opts}
}

func (v *VoteService) List(ctx context.Context, answerID int64, opts ...option.RequestOption) ([]domain.Vote, error) {
	if answerID <= 0 {
		return nil, ErrMissingIDParameter
	}
	opts = slices.Concat(v.Options, opts, []option.RequestOption{option.WithRoute("/answers/{id}/votes")})

	var res []byte
	path := fmt.Sprintf("answers/%d/votes", answerID)
	if err := requestconfig.ExecuteNewRequest(ctx, http.MethodGet, path, nil, &res, opts...); err != nil {
		return nil, mapError(err, nil)
	}
	return decodeVotes(answerID, res)
}

func (v *VoteService) New(ctx context.Context, userID, answerID int64, opts ...option.RequestOption) error {
	vote := domain.Vote{UserID: userID, AnswerID: answerID}
	if err := vote.Validate(); err != nil {
		return err
	}
	opts = slices.Concat(v.Options, opts, []option.RequestOption{option.WithRoute("/votes")})

	body, _ := sjson.SetBytes(nil, "userId", userID)
	body, _ = sjson.SetBytes(body, "answerId", answerID)

	err := requestconfig.ExecuteNewRequest(ctx, http.MethodPost, "votes", body, nil, opts...)
	return mapError(err, statusOverrides{
		http.StatusConflict: domain.ErrDuplicateVote,
	})
}

func (v *VoteService) Delete(ctx context.Context, userID, answerID int64, opts ...option.RequestOption) error {
	vote := domain.Vote{UserID: userID, AnswerID: answerID}
	if err := vote.Validate(); err != nil {
		return err
	}
	opts = slices.Concat(v.Options, opts, []option.RequestOption{option.WithRoute("/votes")})

	query := url.Values{}
	query.Set("userId", strconv.FormatInt(userID, 10))
	query.Set("answerId", strconv.FormatInt(answerID, 10))
	path := fmt.Sprintf("votes?%s", query.Encode())

	err := requestconfig.ExecuteNewRequest(ctx, http.MethodDelete, path, nil, nil, opts...)
	return mapError(err, statusOverrides{
		http.StatusNotFound: domain.ErrNoActiveVote,
		http.StatusConflict: domain.ErrNoActiveVote,
	})
}
