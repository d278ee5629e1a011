package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

const (
	// queryDateLayout is the dd-MM-yyyy format kiosk dashboards send.
	queryDateLayout = "02-01-2006"

	defaultPageSize = 20
	maxPageSize     = 100
)

// parseListQuery turns the feedback list query parameters into a repository
// filter and page request. Any value it does not recognize rejects the whole
// query with an InvalidFilterOptionError, unknown values never silently
// widen the result set.
func parseListQuery(c echo.Context) (repositories.FeedbackFilter, repositories.PageRequest, error) {
	var filter repositories.FeedbackFilter
	page := repositories.PageRequest{
		Size:   defaultPageSize,
		SortBy: repositories.SortByReceivedAt,
	}

	if raw := c.QueryParam("pageNo"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, page, &domain.InvalidFilterOptionError{Field: "pageNo", Value: raw}
		}
		page.Number = n
	}

	if raw := c.QueryParam("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return filter, page, &domain.InvalidFilterOptionError{Field: "pageSize", Value: raw}
		}
		page.Size = n
	}

	switch raw := c.QueryParam("sortBy"); raw {
	case "":
	case string(repositories.SortByID):
		page.SortBy = repositories.SortByID
	case string(repositories.SortByReceivedAt):
		page.SortBy = repositories.SortByReceivedAt
	default:
		return filter, page, &domain.InvalidFilterOptionError{Field: "sortBy", Value: raw}
	}

	if raw := c.QueryParam("ascending"); raw != "" {
		asc, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, page, &domain.InvalidFilterOptionError{Field: "ascending", Value: raw}
		}
		page.Ascending = asc
	}

	if raw := c.QueryParam("feedbackState"); raw != "" {
		state, ok := entities.ParseFeedbackState(raw)
		if !ok {
			return filter, page, &domain.InvalidFilterOptionError{Field: "feedbackState", Value: raw}
		}
		filter.State = &state
	}

	if raw := c.QueryParam("sentimentState"); raw != "" {
		label, ok := entities.ParseSentiment(raw)
		if !ok {
			return filter, page, &domain.InvalidFilterOptionError{Field: "sentimentState", Value: raw}
		}
		filter.Sentiment = &label
	}

	if raw := c.QueryParam("startDate"); raw != "" {
		start, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			return filter, page, &domain.InvalidFilterOptionError{Field: "startDate", Value: raw}
		}
		filter.Start = &start
	}

	if raw := c.QueryParam("endDate"); raw != "" {
		day, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			return filter, page, &domain.InvalidFilterOptionError{Field: "endDate", Value: raw}
		}
		// The end date is inclusive, the window runs to the end of that day.
		end := day.Add(24*time.Hour - time.Nanosecond)
		filter.End = &end
	}

	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return filter, page, &domain.InvalidFilterOptionError{Field: "endDate", Value: c.QueryParam("endDate")}
	}

	return filter, page, nil
}
