package chatbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/irsalhamdi/learnhub/api/web"
	"github.com/irsalhamdi/learnhub/api/weberr"
	"github.com/irsalhamdi/learnhub/validate"
)

type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

type MessageNew struct {
	Message string `json:"message" validate:"required,max=500"`
}

type reply struct {
	Reply string `json:"reply"`
}

func HandleChat(bot Replier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var mn MessageNew
		if err := web.Decode(w, r, &mn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		mn.Message = strings.TrimSpace(mn.Message)
		if err := validate.Check(mn); err != nil {
			return weberr.InvalidInput(err)
		}

		text, err := bot.Reply(ctx, mn.Message)
		if err != nil {
			if errors.Is(err, ErrUpstream) {
				return weberr.Upstream(err)
			}
			return err
		}

		return web.Respond(ctx, w, reply{Reply: text}, http.StatusOK)
	}
}
