package qweather

type cityLookupResponse struct {
	Code     string     `json:"code"`
	Location []Location `json:"location"`
}

// Location is a city returned by the geo lookup
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Adm1    string `json:"adm1"`
	Adm2    string `json:"adm2"`
	Country string `json:"country"`
}

type warningResponse struct {
	Code    string    `json:"code"`
	Warning []Warning `json:"warning"`
}

// Warning is an active weather warning
type Warning struct {
	ID            string `json:"id"`
	Sender        string `json:"sender"`
	PubTime       string `json:"pubTime"`
	Title         string `json:"title"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Status        string `json:"status"`
	Severity      string `json:"severity"`
	SeverityColor string `json:"severityColor"`
	Type          string `json:"type"`
	TypeName      string `json:"typeName"`
	Text          string `json:"text"`
}

type dailyResponse struct {
	Code  string  `json:"code"`
	Daily []Daily `json:"daily"`
}

// Daily is one day of a forecast
type Daily struct {
	FxDate         string `json:"fxDate"`
	Sunrise        string `json:"sunrise"`
	Sunset         string `json:"sunset"`
	TempMax        string `json:"tempMax"`
	TempMin        string `json:"tempMin"`
	TextDay        string `json:"textDay"`
	TextNight      string `json:"textNight"`
	WindDirDay     string `json:"windDirDay"`
	WindScaleDay   string `json:"windScaleDay"`
	WindSpeedDay   string `json:"windSpeedDay"`
	WindDirNight   string `json:"windDirNight"`
	WindScaleNight string `json:"windScaleNight"`
	WindSpeedNight string `json:"windSpeedNight"`
	Humidity       string `json:"humidity"`
	Precip         string `json:"precip"`
	UVIndex        string `json:"uvIndex"`
	Vis            string `json:"vis"`
}
