package service

import (
	"github.com/kjstillabower/temp14-service/internal/models"
	"github.com/kjstillabower/temp14-service/internal/timezone"
)

// localHour is the wall-clock hour whose sample represents the day.
const localHour = 14

const dateLayout = "2006-01-02"

// ExtractDailyTemperatures returns one record per timeseries point whose local time in
// tzID falls in hour 14, in source order. An empty or unknown tzID means UTC. Each
// instant is converted with its own offset, so DST transitions are honoured. Points
// without an air temperature are skipped. Duplicate dates are kept as-is.
func ExtractDailyTemperatures(forecast models.Forecast, tzID string) []models.DailyTemperature {
	loc, _ := timezone.LoadLocation(tzID)

	temps := []models.DailyTemperature{}
	for _, point := range forecast.Properties.Timeseries {
		temp := point.Data.Instant.Details.AirTemperature
		if temp == nil {
			continue
		}
		local := point.Time.In(loc)
		if local.Hour() != localHour {
			continue
		}
		temps = append(temps, models.DailyTemperature{
			Date:        local.Format(dateLayout),
			Temperature: *temp,
		})
	}
	return temps
}
