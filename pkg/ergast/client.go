package ergast

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/PepeHerrera14/final-adquisicion/pkg/pagination"
	"github.com/PepeHerrera14/final-adquisicion/pkg/ratelimit"
)

// resultsLimit covers every classified driver in a single request.
const resultsLimit = 1000

// Getter is the subset of client.Client used here.
type Getter interface {
	GetBytes(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// forgetter is implemented by getters that cache bodies and can drop one
// that turned out to be malformed.
type forgetter interface {
	Forget(ctx context.Context, endpoint string, params url.Values)
}

// Client issues typed queries against the statistics API.
type Client struct {
	api    Getter
	pages  *pagination.OffsetFetcher[PitStop]
	logger zerolog.Logger
}

// NewClient creates a client. A nil sleeper selects ratelimit.ContextSleep
// for the pause between pit-stop pages.
func NewClient(api Getter, pages pagination.Config, sleep ratelimit.Sleeper) *Client {
	return &Client{
		api:    api,
		pages:  pagination.NewOffsetFetcher[PitStop](pages, sleep),
		logger: log.With().Str("component", "ergast").Logger(),
	}
}

// Races returns the calendar of a season.
func (c *Client) Races(ctx context.Context, season int) ([]Race, error) {
	data, err := c.get(ctx, fmt.Sprintf("%d.json", season), url.Values{"limit": {strconv.Itoa(resultsLimit)}})
	if err != nil {
		return nil, err
	}
	return data.RaceTable.Races, nil
}

// Rounds returns the round numbers of a season in ascending order.
func (c *Client) Rounds(ctx context.Context, season int) ([]int, error) {
	races, err := c.Races(ctx, season)
	if err != nil {
		return nil, err
	}

	rounds := make([]int, 0, len(races))
	for _, race := range races {
		rnd, err := strconv.Atoi(race.Round)
		if err != nil {
			return nil, fmt.Errorf("%w: season %d round %q", ErrMalformed, season, race.Round)
		}
		rounds = append(rounds, rnd)
	}
	sort.Ints(rounds)

	c.logger.Debug().Int("season", season).Int("rounds", len(rounds)).Msg("Season calendar fetched")
	return rounds, nil
}

// DriverNumbers returns driverId -> car number for one event. An event with no
// results yields an empty map.
func (c *Client) DriverNumbers(ctx context.Context, ev Event) (map[string]string, error) {
	endpoint := fmt.Sprintf("%d/%d/results.json", ev.Season, ev.Round)
	data, err := c.get(ctx, endpoint, url.Values{"limit": {strconv.Itoa(resultsLimit)}})
	if err != nil {
		return nil, err
	}
	if len(data.RaceTable.Races) == 0 {
		return map[string]string{}, nil
	}
	return NumbersFromResults(data.RaceTable.Races[0].Results), nil
}

// PitStops returns every pit-stop record of one event, paging through the
// endpoint. An unknown event or one without stops yields an empty slice.
func (c *Client) PitStops(ctx context.Context, ev Event) ([]PitStop, error) {
	endpoint := fmt.Sprintf("%d/%d/pitstops.json", ev.Season, ev.Round)

	source := pagination.PageFetcherFunc[PitStop](func(ctx context.Context, limit, offset int) (pagination.Page[PitStop], error) {
		data, err := c.get(ctx, endpoint, url.Values{
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		})
		if err != nil {
			return pagination.Page[PitStop]{}, err
		}
		if len(data.RaceTable.Races) == 0 {
			return pagination.Page[PitStop]{NoEvent: true}, nil
		}
		return pagination.Page[PitStop]{
			Items: data.RaceTable.Races[0].PitStops,
			Total: int(data.Total),
		}, nil
	})

	stops, err := c.pages.FetchAll(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("pit stops %s: %w", ev, err)
	}
	return stops, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*MRData, error) {
	body, err := c.api.GetBytes(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	data, err := decode(body)
	if err != nil {
		if f, ok := c.api.(forgetter); ok {
			f.Forget(ctx, endpoint, params)
		}
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return data, nil
}
