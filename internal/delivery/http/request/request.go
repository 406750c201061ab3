package request

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
)

// DateLayout is the format of start_date and end_date query parameters.
const DateLayout = "2006-01-02"

type CreateChannelRequest struct {
	Name         string     `json:"name"`
	Domain       string     `json:"domain"`
	InternalLink string     `json:"internal_link"`
	Theme        string     `json:"theme"`
	Active       *bool      `json:"active"`
	IsReference  bool       `json:"is_reference"`
	ProviderID   *uuid.UUID `json:"provider_id"`
}

func (r CreateChannelRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.InternalLink != "" {
		if err := validateLink(r.InternalLink); err != nil {
			return err
		}
	}
	return nil
}

// Channel builds the entity. Channels are active unless the request says otherwise.
func (r CreateChannelRequest) Channel() *entity.Channel {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &entity.Channel{
		Name:         r.Name,
		Domain:       r.Domain,
		InternalLink: r.InternalLink,
		Theme:        r.Theme,
		Active:       active,
		IsReference:  r.IsReference,
		ProviderID:   r.ProviderID,
	}
}

type UpdateChannelRequest struct {
	Name         *string    `json:"name"`
	Domain       *string    `json:"domain"`
	InternalLink *string    `json:"internal_link"`
	Theme        *string    `json:"theme"`
	Active       *bool      `json:"active"`
	IsReference  *bool      `json:"is_reference"`
	ProviderID   *uuid.UUID `json:"provider_id"`
}

func (r UpdateChannelRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name must not be empty")
	}
	if r.InternalLink != nil && *r.InternalLink != "" {
		return validateLink(*r.InternalLink)
	}
	return nil
}

func (r UpdateChannelRequest) Update() entity.ChannelUpdate {
	return entity.ChannelUpdate{
		Name:         r.Name,
		Domain:       r.Domain,
		InternalLink: r.InternalLink,
		Theme:        r.Theme,
		Active:       r.Active,
		IsReference:  r.IsReference,
		ProviderID:   r.ProviderID,
	}
}

type CreatePageRequest struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	ProviderID *uuid.UUID `json:"provider_id"`
}

func (r CreatePageRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return validatePath(r.Path)
}

func (r CreatePageRequest) Page() *entity.Page {
	return &entity.Page{Name: r.Name, Path: r.Path, ProviderID: r.ProviderID}
}

type UpdatePageRequest struct {
	Name       *string    `json:"name"`
	Path       *string    `json:"path"`
	ProviderID *uuid.UUID `json:"provider_id"`
}

func (r UpdatePageRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name must not be empty")
	}
	if r.Path != nil {
		return validatePath(*r.Path)
	}
	return nil
}

func (r UpdatePageRequest) Update() entity.PageUpdate {
	return entity.PageUpdate{Name: r.Name, Path: r.Path, ProviderID: r.ProviderID}
}

type CreateProviderRequest struct {
	Name        string `json:"name"`
	Website     string `json:"website"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (r CreateProviderRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Slug) == "" {
		return errors.New("slug is required")
	}
	return nil
}

func (r CreateProviderRequest) Provider() *entity.Provider {
	return &entity.Provider{Name: r.Name, Website: r.Website, Slug: r.Slug, Description: r.Description}
}

type UpdateProviderRequest struct {
	Name        *string `json:"name"`
	Website     *string `json:"website"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

func (r UpdateProviderRequest) Validate() error {
	if r.Slug != nil && strings.TrimSpace(*r.Slug) == "" {
		return errors.New("slug must not be empty")
	}
	return nil
}

func (r UpdateProviderRequest) Update() entity.ProviderUpdate {
	return entity.ProviderUpdate{Name: r.Name, Website: r.Website, Slug: r.Slug, Description: r.Description}
}

// ParseChannelFilter reads theme, provider_id, is_reference and active.
func ParseChannelFilter(q url.Values) (entity.ChannelFilter, error) {
	var f entity.ChannelFilter
	if v := q.Get("theme"); v != "" {
		f.Theme = &v
	}
	if v := q.Get("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("invalid provider_id %q", v)
		}
		f.ProviderID = &id
	}
	var err error
	if f.IsReference, err = parseBool(q, "is_reference"); err != nil {
		return f, err
	}
	if f.Active, err = parseBool(q, "active"); err != nil {
		return f, err
	}
	return f, nil
}

// ParseAverageQuery reads an aggregate query. The scope is the first of
// page, channel_id, provider_id and theme that is set; none means global.
func ParseAverageQuery(q url.Values) (entity.AggregateQuery, error) {
	var out entity.AggregateQuery

	period := q.Get("period")
	if period == "" {
		return out, errors.New("period is required")
	}
	p, err := entity.ParsePeriod(period)
	if err != nil {
		return out, err
	}
	out.Period = p

	switch {
	case q.Get("page") != "":
		out.Scope = entity.AggregateScope{Kind: entity.ScopePage, Value: q.Get("page")}
	case q.Get("channel_id") != "":
		out.Scope = entity.AggregateScope{Kind: entity.ScopeChannel, Value: q.Get("channel_id")}
	case q.Get("provider_id") != "":
		out.Scope = entity.AggregateScope{Kind: entity.ScopeProvider, Value: q.Get("provider_id")}
	case q.Get("theme") != "":
		out.Scope = entity.AggregateScope{Kind: entity.ScopeTheme, Value: q.Get("theme")}
	default:
		out.Scope = entity.AggregateScope{Kind: entity.ScopeGlobal}
	}

	if out.MetricFilter, err = parseMetric(q); err != nil {
		return out, err
	}
	if out.StartDate, out.EndDate, err = parseDates(q); err != nil {
		return out, err
	}
	return out, nil
}

// ParsePageMetricsQuery reads metric, start_date and end_date.
func ParsePageMetricsQuery(q url.Values) (entity.PageMetricsQuery, error) {
	var (
		out entity.PageMetricsQuery
		err error
	)
	if out.Metric, err = parseMetric(q); err != nil {
		return out, err
	}
	if out.StartDate, out.EndDate, err = parseDates(q); err != nil {
		return out, err
	}
	return out, nil
}

func parseMetric(q url.Values) (*entity.MetricName, error) {
	v := q.Get("metric")
	if v == "" {
		return nil, nil
	}
	m, err := entity.ParseMetricName(v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func parseDates(q url.Values) (start, end *time.Time, err error) {
	if start, err = parseDate(q, "start_date"); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate(q, "end_date"); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errors.New("end_date is before start_date")
	}
	return start, end, nil
}

func parseDate(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", key, v)
	}
	return &t, nil
}

func parseBool(q url.Values, key string) (*bool, error) {
	switch q.Get(key) {
	case "":
		return nil, nil
	case "true", "1":
		b := true
		return &b, nil
	case "false", "0":
		b := false
		return &b, nil
	}
	return nil, fmt.Errorf("invalid %s %q", key, q.Get(key))
}

func validateLink(link string) error {
	u, err := url.ParseRequestURI(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid internal_link %q", link)
	}
	return nil
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must start with /", path)
	}
	return nil
}
