package rooms

type filterResponse struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}

type listResponse struct {
	Rooms  []roomResponse  `json:"rooms"`
	Filter *filterResponse `json:"filter,omitempty"`
}

type answerResponse struct {
	ID          int64  `json:"id"`
	Message     string `json:"message"`
	Username    string `json:"username"`
	VotesLength int    `json:"votesLength"`
	Voted       bool   `json:"voted"`
}

type roomResponse struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	CreatorName  string           `json:"creatorName"`
	AnswersCount int              `json:"answersCount"`
	Answers      []answerResponse `json:"answers,omitempty"`
}
