package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/interfaces"
	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// TimelineSource
//
// Fetches daily histories from a Visual Crossing timeline style API. One
// request runs at a time: Execute starts it, Poll checks on it without
// blocking and Get waits for the result and consumes it.
// -----------------------------------------------------------------------------

type activeRequest struct {
	done   chan struct{}
	result models.MDailyHistories
	err    error
}

type TimelineSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	mu     sync.Mutex
	active *activeRequest
}

// -----------------------------------------------------------------------------

func NewTimelineSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *TimelineSource {
	return &TimelineSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *TimelineSource) Execute(location models.MLocation, dateRange models.MDateRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return fmt.Errorf("a history request is already active")
	}

	request := &activeRequest{done: make(chan struct{})}
	s.active = request
	go s.fetch(request, location, dateRange)
	return nil
}

// -----------------------------------------------------------------------------

func (s *TimelineSource) Poll() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return false, fmt.Errorf("no history request is active")
	}
	select {
	case <-s.active.done:
		return true, nil
	default:
		return false, nil
	}
}

// -----------------------------------------------------------------------------

func (s *TimelineSource) Get() (models.MDailyHistories, error) {
	s.mu.Lock()
	request := s.active
	s.mu.Unlock()

	if request == nil {
		return models.MDailyHistories{}, nil
	}
	<-request.done

	s.mu.Lock()
	if s.active == request {
		s.active = nil
	}
	s.mu.Unlock()
	return request.result, request.err
}

// -----------------------------------------------------------------------------

func (s *TimelineSource) fetch(request *activeRequest, location models.MLocation, dateRange models.MDateRange) {
	defer close(request.done)

	url := fmt.Sprintf("%s/%s,%s/%s",
		strings.TrimSuffix(s.Config.Timeline.Endpoint, "/"),
		location.Latitude, location.Longitude,
		dateRange.Start.Format(models.DateFormat))
	if !dateRange.IsOneDay() {
		url += "/" + dateRange.End.Format(models.DateFormat)
	}

	params := map[string]string{
		"unitGroup":   "us",
		"include":     "days",
		"contentType": "json",
	}
	if s.Config.Timeline.APIKey != "" {
		params["key"] = s.Config.Timeline.APIKey
	}

	body, err := s.Network.Get(url, params)
	if err != nil {
		request.err = helpers.NewStorageError(
			fmt.Sprintf("history fetch for '%s' failed", location.Alias), err)
		return
	}

	histories, err := parseTimelineDays(location.Alias, body)
	if err != nil {
		request.err = err
		return
	}
	s.Logger.Info("fetched %d histories for '%s'", len(histories), location.Alias)
	request.result = models.MDailyHistories{Location: location, Histories: histories}
}

// -----------------------------------------------------------------------------
// Response parsing
// -----------------------------------------------------------------------------

type timelineDay struct {
	Datetime     string   `json:"datetime"`
	TempMax      *float64 `json:"tempmax"`
	TempMin      *float64 `json:"tempmin"`
	Temp         *float64 `json:"temp"`
	Dew          *float64 `json:"dew"`
	Humidity     *float64 `json:"humidity"`
	Precip       *float64 `json:"precip"`
	PrecipProb   *float64 `json:"precipprob"`
	PrecipType   []string `json:"preciptype"`
	WindSpeed    *float64 `json:"windspeed"`
	WindGust     *float64 `json:"windgust"`
	WindDir      *float64 `json:"winddir"`
	Pressure     *float64 `json:"pressure"`
	CloudCover   *float64 `json:"cloudcover"`
	UVIndex      *float64 `json:"uvindex"`
	Visibility   *float64 `json:"visibility"`
	MoonPhase    *float64 `json:"moonphase"`
	SunriseEpoch *int64   `json:"sunriseEpoch"`
	SunsetEpoch  *int64   `json:"sunsetEpoch"`
	Description  *string  `json:"description"`
}

type timelineResponse struct {
	Days []timelineDay `json:"days"`
}

// -----------------------------------------------------------------------------

func parseTimelineDays(alias string, body []byte) ([]models.MHistory, error) {
	var response timelineResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("timeline response for '%s': %w", alias, err)
	}

	histories := make([]models.MHistory, 0, len(response.Days))
	for _, day := range response.Days {
		date, err := time.ParseInLocation(models.DateFormat, day.Datetime, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("timeline response for '%s': bad date '%s': %w", alias, day.Datetime, err)
		}

		history := models.MHistory{
			Alias:      alias,
			Date:       date,
			TempMax:    day.TempMax,
			TempMin:    day.TempMin,
			TempMean:   day.Temp,
			DewPoint:   day.Dew,
			Humidity:   day.Humidity,
			Precip:     day.Precip,
			PrecipProb: day.PrecipProb,
			WindSpeed:  day.WindSpeed,
			WindGust:   day.WindGust,
			WindDir:    day.WindDir,
			Pressure:   day.Pressure,
			Cloud:      day.CloudCover,
			UV:         day.UVIndex,
			Visibility: day.Visibility,
			Moon:       day.MoonPhase,
			Summary:    day.Description,
		}
		if len(day.PrecipType) > 0 {
			precipType := strings.Join(day.PrecipType, ",")
			history.PrecipType = &precipType
		}
		if day.SunriseEpoch != nil {
			t := time.Unix(*day.SunriseEpoch, 0).UTC()
			history.Sunrise = &t
		}
		if day.SunsetEpoch != nil {
			t := time.Unix(*day.SunsetEpoch, 0).UTC()
			history.Sunset = &t
		}
		histories = append(histories, history)
	}
	return histories, nil
}
