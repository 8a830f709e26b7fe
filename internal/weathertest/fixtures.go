// Package weathertest holds shared fixtures for tests that need a realistic
// OpenWeather current-weather document.
package weathertest

import "github.com/kjstillabower/weathernow/internal/models"

// SampleBody is a current-weather response as returned by the API for Seattle.
const SampleBody = `{
  "coord": {"lon": -122.3321, "lat": 47.6062},
  "weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
  "base": "stations",
  "main": {"temp": 15.5, "feels_like": 14.9, "temp_min": 13.2, "temp_max": 17.8, "pressure": 1016, "humidity": 65, "sea_level": 1016, "grnd_level": 1004},
  "visibility": 10000,
  "wind": {"speed": 3.2, "deg": 240, "gust": 5.1},
  "clouds": {"all": 75},
  "dt": 1718049600,
  "sys": {"type": 2, "id": 2041694, "country": "US", "sunrise": 1718021400, "sunset": 1718078700},
  "timezone": -25200,
  "id": 5809844,
  "name": "Seattle",
  "cod": 200
}`

// SampleResponse returns the decoded form of SampleBody.
func SampleResponse() models.WeatherResponse {
	return models.WeatherResponse{
		Coord: models.Coord{Lat: 47.6062, Lon: -122.3321},
		Weather: []models.Condition{
			{ID: 803, Main: "Clouds", Description: "broken clouds", Icon: "04d"},
		},
		Base: "stations",
		Main: models.Main{
			Temp: 15.5, FeelsLike: 14.9, TempMin: 13.2, TempMax: 17.8,
			Pressure: 1016, Humidity: 65, SeaLevel: 1016, GrndLevel: 1004,
		},
		Visibility: 10000,
		Wind:       models.Wind{Speed: 3.2, Deg: 240, Gust: 5.1},
		Clouds:     models.Clouds{All: 75},
		Dt:         1718049600,
		Sys:        models.Sys{Type: 2, ID: 2041694, Country: "US", Sunrise: 1718021400, Sunset: 1718078700},
		Timezone:   -25200,
		ID:         5809844,
		Name:       "Seattle",
		Cod:        200,
	}
}

// NightResponse returns SampleResponse with a clear-night condition.
func NightResponse() models.WeatherResponse {
	r := SampleResponse()
	r.Weather = []models.Condition{{ID: 800, Main: "Clear", Description: "clear sky", Icon: "01n"}}
	return r
}
