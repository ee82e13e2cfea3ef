package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
)

// MetricPoint is one day's value for a performance metric.
type MetricPoint struct {
	Date  string
	Value int64
}

// MetricSeries is a daily time series for one metric on one location.
type MetricSeries struct {
	Metric string
	Points []MetricPoint
}

type dailyMetricResponse struct {
	TimeSeries *struct {
		DatedValues []struct {
			Date *struct {
				Year  int `json:"year"`
				Month int `json:"month"`
				Day   int `json:"day"`
			} `json:"date"`
			Value string `json:"value"`
		} `json:"datedValues"`
	} `json:"timeSeries"`
}

// GetDailyMetrics fetches a location's daily series for one metric over
// [start, end].
func (c *Client) GetDailyMetrics(ctx context.Context, principalID, locationName, metric string, start, end time.Time) (*MetricSeries, error) {
	if locationName == "" || metric == "" {
		return nil, apierrors.New(apierrors.KindInvalidRequest, 0, "location name and metric are required")
	}

	query := url.Values{}
	query.Set("dailyMetric", metric)
	query.Set("dailyRange.startDate.year", strconv.Itoa(start.Year()))
	query.Set("dailyRange.startDate.month", strconv.Itoa(int(start.Month())))
	query.Set("dailyRange.startDate.day", strconv.Itoa(start.Day()))
	query.Set("dailyRange.endDate.year", strconv.Itoa(end.Year()))
	query.Set("dailyRange.endDate.month", strconv.Itoa(int(end.Month())))
	query.Set("dailyRange.endDate.day", strconv.Itoa(end.Day()))

	var resp dailyMetricResponse
	path := "/" + locationName + ":getDailyMetricsTimeSeries"
	if err := c.do(ctx, principalID, http.MethodGet, GroupPerformance, path, query, nil, &resp); err != nil {
		return nil, err
	}

	if resp.TimeSeries == nil {
		return nil, apierrors.New(apierrors.KindValidationError, 0, "metrics response missing time series")
	}

	series := &MetricSeries{Metric: metric}
	for _, dv := range resp.TimeSeries.DatedValues {
		if dv.Date == nil {
			return nil, apierrors.New(apierrors.KindValidationError, 0, "metrics response contains a value without a date")
		}
		value := int64(0)
		if dv.Value != "" {
			parsed, err := strconv.ParseInt(dv.Value, 10, 64)
			if err != nil {
				return nil, apierrors.Wrap(apierrors.KindValidationError, 0, "metrics response contains a non-numeric value", err)
			}
			value = parsed
		}
		date := time.Date(dv.Date.Year, time.Month(dv.Date.Month), dv.Date.Day, 0, 0, 0, 0, time.UTC)
		series.Points = append(series.Points, MetricPoint{
			Date:  date.Format("2006-01-02"),
			Value: value,
		})
	}
	return series, nil
}
