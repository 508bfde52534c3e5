package views

import (
	"fmt"
	"io"

	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/broadcast"
)

type RoomsSource interface {
	Subscribe(fn broadcast.Listener[[]domain.Room]) *broadcast.Subscription[[]domain.Room]
}

type RoomSource interface {
	Subscribe(fn broadcast.Listener[domain.Room]) *broadcast.Subscription[domain.Room]
}

type SessionSource interface {
	Subscribe(fn broadcast.Listener[domain.Session]) *broadcast.Subscription[domain.Session]
}

type ListView struct {
	sub *broadcast.Subscription[[]domain.Room]
}

func NewListView(console *Console, src RoomsSource) *ListView {
	v := &ListView{}
	v.sub = src.Subscribe(func(rooms []domain.Room) {
		console.Render(func(w io.Writer) { RenderRooms(w, rooms) })
	})
	return v
}

func (v *ListView) Close() {
	v.sub.Close()
}

type DetailView struct {
	sub *broadcast.Subscription[domain.Room]
}

func NewDetailView(console *Console, src RoomSource) *DetailView {
	v := &DetailView{}
	v.sub = src.Subscribe(func(room domain.Room) {
		console.Render(func(w io.Writer) { RenderRoom(w, room) })
	})
	return v
}

func (v *DetailView) Close() {
	v.sub.Close()
}

// SessionView prints identity changes only, not every republish.
type SessionView struct {
	sub  *broadcast.Subscription[domain.Session]
	last string
}

func NewSessionView(console *Console, src SessionSource) *SessionView {
	v := &SessionView{}
	v.sub = src.Subscribe(func(s domain.Session) {
		line := SessionLine(s)
		if line == v.last {
			return
		}
		v.last = line
		console.Printf("%s\n", line)
	})
	return v
}

func (v *SessionView) Close() {
	v.sub.Close()
}

func RenderRooms(w io.Writer, rooms []domain.Room) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, "No rooms.")
		return
	}
	for _, r := range rooms {
		fmt.Fprintf(w, "#%d %s (by %s) - %s\n", r.ID, r.Title, r.CreatorName, plural(r.AnswersCount, "answer"))
	}
}

func RenderRoom(w io.Writer, room domain.Room) {
	if room.ID == 0 {
		fmt.Fprintln(w, "Room closed.")
		return
	}
	fmt.Fprintf(w, "== #%d %s (by %s)\n%s\n", room.ID, room.Title, room.CreatorName, room.Message)
	if len(room.Answers) == 0 {
		fmt.Fprintln(w, "  no answers yet")
		return
	}
	for _, a := range room.Answers {
		mark := " "
		if a.Voted() {
			mark = "*"
		}
		fmt.Fprintf(w, "  [%d]%s %s: %s (%s)\n", a.ID, mark, a.Username, a.Message, plural(a.VotesLength, "vote"))
	}
}

func SessionLine(s domain.Session) string {
	name, ok := s.Name()
	if !ok {
		return "Logged out."
	}
	id, _ := s.ActingUserID()
	return fmt.Sprintf("Logged in as %s (#%d).", name, id)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
