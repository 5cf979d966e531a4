package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrBadBoard is returned when a move payload does not describe a board the
// starter decider can read.
var ErrBadBoard = errors.New("unreadable board")

// Appearance is the snake configuration returned on start.
type Appearance struct {
	Color    string `json:"color"`
	HeadType string `json:"headType"`
	TailType string `json:"tailType"`
}

// DefaultAppearance is used when no appearance is configured.
var DefaultAppearance = Appearance{
	Color:    "#5B2A86",
	HeadType: "bendr",
	TailType: "pixel",
}

type point struct{ x, y int64 }

type direction struct {
	name   string
	dx, dy int64
}

// directions in preference order. Board origin is the top-left corner, so up
// decreases y.
var directions = []direction{
	{"up", 0, -1},
	{"left", -1, 0},
	{"down", 0, 1},
	{"right", 1, 0},
}

// Starter is a minimal decider: it picks the first move that keeps the head
// on the board and off every snake body.
type Starter struct {
	Appearance Appearance
}

// NewStarter returns a starter decider with the default appearance.
func NewStarter() *Starter {
	return &Starter{Appearance: DefaultAppearance}
}

func (s *Starter) Start(_ context.Context, _ []byte) ([]byte, error) {
	return json.Marshal(s.Appearance)
}

func (s *Starter) Move(_ context.Context, payload []byte) ([]byte, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrBadBoard)
	}

	board := gjson.GetBytes(payload, "board")
	width, height := board.Get("width").Int(), board.Get("height").Int()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: missing board dimensions", ErrBadBoard)
	}

	head := gjson.GetBytes(payload, "you.body.0")
	if !head.Exists() {
		return nil, fmt.Errorf("%w: missing snake head", ErrBadBoard)
	}
	from := point{head.Get("x").Int(), head.Get("y").Int()}

	occupied := make(map[point]bool)
	board.Get("snakes").ForEach(func(_, snake gjson.Result) bool {
		body := snake.Get("body").Array()
		for i, seg := range body {
			p := point{seg.Get("x").Int(), seg.Get("y").Int()}
			// The tail moves on next turn unless the snake just grew.
			if i == len(body)-1 && i > 0 && !samePoint(body[i-1], seg) {
				continue
			}
			occupied[p] = true
		}
		return true
	})

	for _, d := range directions {
		next := point{from.x + d.dx, from.y + d.dy}
		if next.x < 0 || next.y < 0 || next.x >= width || next.y >= height {
			continue
		}
		if occupied[next] {
			continue
		}
		return mustJSON(map[string]string{"move": d.name}), nil
	}
	return mustJSON(map[string]string{"move": directions[0].name}), nil
}

func (s *Starter) End(context.Context, []byte) error {
	return nil
}

func samePoint(a, b gjson.Result) bool {
	return a.Get("x").Int() == b.Get("x").Int() && a.Get("y").Int() == b.Get("y").Int()
}
