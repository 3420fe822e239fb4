package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/jbeshir/problem-rankings/internal/command"
	"github.com/jbeshir/problem-rankings/internal/domain"
)

// TrendingRSS renders the trending list as an RSS 2.0 feed.
type TrendingRSS struct {
	FeedBaseURL string
	FeedPath    string
	Command     command.Command[command.ListTrendingRequest, command.ListTrendingResult]
	CacheMaxAge time.Duration
	Now         func() time.Time
}

func (c TrendingRSS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := domain.LoggerFromContext(ctx)
	q := r.URL.Query()

	limit, err := parseLimit(q)
	if err != nil {
		logger.WarnContext(ctx, "unable to parse limit in query string", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result, err := c.Command.Execute(ctx, command.ListTrendingRequest{
		Limit:      limit,
		CategoryID: q.Get("category_id"),
	})
	if err != nil {
		logger.ErrorContext(ctx, "unable to fetch trending problems for feed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	feed := &feeds.Feed{
		Title:       "Trending Problems",
		Link:        &feeds.Link{Href: c.FeedBaseURL + c.FeedPath},
		Description: "Problems gaining votes and engagement right now",
		Created:     now(c.Now),
	}
	for _, p := range result.Problems {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          p.Problem.ID,
			IsPermaLink: "false",
			Title:       p.Problem.Title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/problems/%s", c.FeedBaseURL, p.Problem.ID)},
			Description: p.Problem.Description,
			Created:     p.Problem.CreatedAt,
			Updated:     p.Record.CalculatedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		logger.ErrorContext(ctx, "unable to format feed as RSS", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	setCacheControl(w, c.CacheMaxAge)

	if _, err := w.Write([]byte(rss)); err != nil {
		logger.ErrorContext(ctx, "unable to write feed to response", "error", err)
	}
}
