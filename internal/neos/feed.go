package neos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingFeedBaseURL = errors.New("neos: feed base url is required")
	errMissingFeedAPIKey  = errors.New("neos: feed api key is required")
	// ErrInvalidFeedConfig flags an unusable feed client configuration.
	ErrInvalidFeedConfig = errors.New("neos: invalid feed client config")
)

// FeedClientConfig bundles configuration for the NeoWs feed client.
type FeedClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Clock      func() time.Time
}

// FeedClient fetches close-approach records from the NASA NeoWs feed.
type FeedClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	clock      func() time.Time
}

// NewFeedClient constructs a feed client with validated configuration.
func NewFeedClient(cfg FeedClientConfig) (*FeedClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedConfig, errMissingFeedBaseURL)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeedConfig, errMissingFeedAPIKey)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &FeedClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		clock:      clock,
	}, nil
}

type feedDocument struct {
	NearEarthObjects map[string][]feedObject `json:"near_earth_objects"`
}

type feedObject struct {
	Name              string `json:"name"`
	EstimatedDiameter struct {
		Meters struct {
			EstimatedDiameterMax float64 `json:"estimated_diameter_max"`
		} `json:"meters"`
	} `json:"estimated_diameter"`
	CloseApproachData []struct {
		CloseApproachDate string `json:"close_approach_date"`
		RelativeVelocity  struct {
			KilometersPerSecond string `json:"kilometers_per_second"`
		} `json:"relative_velocity"`
		MissDistance struct {
			Lunar string `json:"lunar"`
		} `json:"miss_distance"`
	} `json:"close_approach_data"`
}

// FetchToday returns the NEOs approaching between today and tomorrow. Objects
// without close-approach data are skipped.
func (c *FeedClient) FetchToday(ctx context.Context) ([]NEO, error) {
	today := c.clock().UTC()
	return c.Fetch(ctx, today, today.AddDate(0, 0, 1))
}

// Fetch returns the NEOs approaching within the given date range.
func (c *FeedClient) Fetch(ctx context.Context, start, end time.Time) ([]NEO, error) {
	query := url.Values{}
	query.Set("start_date", start.Format("2006-01-02"))
	query.Set("end_date", end.Format("2006-01-02"))
	query.Set("api_key", c.apiKey)

	requestURL := c.baseURL + "/feed?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("neos: feed request returned status %d", response.StatusCode)
	}

	var document feedDocument
	if err := json.NewDecoder(response.Body).Decode(&document); err != nil {
		return nil, err
	}

	records := make([]NEO, 0)
	for _, objects := range document.NearEarthObjects {
		for _, object := range objects {
			if len(object.CloseApproachData) == 0 {
				c.logger.Debug("skipping neo without close approach data", zap.String("name", object.Name))
				continue
			}
			approach := object.CloseApproachData[0]
			speed, err := strconv.ParseFloat(approach.RelativeVelocity.KilometersPerSecond, 64)
			if err != nil {
				c.logger.Debug("skipping neo with unparsable velocity", zap.String("name", object.Name), zap.Error(err))
				continue
			}
			missDistance, err := strconv.ParseFloat(approach.MissDistance.Lunar, 64)
			if err != nil {
				c.logger.Debug("skipping neo with unparsable miss distance", zap.String("name", object.Name), zap.Error(err))
				continue
			}
			records = append(records, NEO{
				Name:         object.Name,
				Diameter:     math.Round(object.EstimatedDiameter.Meters.EstimatedDiameterMax),
				Speed:        math.Round(speed*100) / 100,
				MissDistance: math.Round(missDistance*10) / 10,
				Date:         approach.CloseApproachDate,
			})
		}
	}

	return records, nil
}
