package schema

type (
	// Ticket is the token holder returned by the authentication endpoints
	Ticket struct {
		Token    string `json:"token"`
		Expires  int64  `json:"expires"`
		Duration int64  `json:"duration"`
	}

	// AuthStep names the document the user has to accept before going further
	AuthStep struct {
		Type          string `json:"type"`
		ComponentName string `json:"componentName"`
	}

	AuthData struct {
		Step       *AuthStep `json:"step"`
		AuthTicket *Ticket   `json:"authTicket"`
	}

	// AuthResponse is the body of both the login and the continue/{step} endpoints
	AuthResponse struct {
		Status *int      `json:"status"`
		Ticket *Ticket   `json:"ticket"`
		Data   *AuthData `json:"data"`
	}

	// Connection is a patient/sensor pairing as returned by the connections endpoint
	Connection struct {
		PatientID   Scalar `json:"patientId"`
		FirstName   Scalar `json:"firstName"`
		LastName    Scalar `json:"lastName"`
		Status      Scalar `json:"status"`
		Gender      Scalar `json:"gender"`
		DateOfBirth Scalar `json:"dateOfBirth"`
		TargetLow   Scalar `json:"targetLow"`
		TargetHigh  Scalar `json:"targetHigh"`
	}

	ConnectionsResponse struct {
		Status *int         `json:"status"`
		Data   []Connection `json:"data"`
	}

	GlucoseMeasurement struct {
		ValueInMgPerDl   Scalar `json:"ValueInMgPerDl"`
		TrendMessage     Scalar `json:"TrendMessage"`
		TrendArrow       Scalar `json:"TrendArrow"`
		Timestamp        Scalar `json:"Timestamp"`
		FactoryTimestamp Scalar `json:"FactoryTimestamp"`
		IsHigh           *bool  `json:"isHigh"`
		IsLow            *bool  `json:"isLow"`
	}

	GraphReading struct {
		ValueInMgPerDl   Scalar `json:"ValueInMgPerDl"`
		Timestamp        Scalar `json:"Timestamp"`
		FactoryTimestamp Scalar `json:"FactoryTimestamp"`
		GraphIndex       Scalar `json:"GraphIndex"`
	}

	Sensor struct {
		DeviceID     Scalar `json:"deviceId"`
		SerialNumber Scalar `json:"sn"`
		SensorState  Scalar `json:"sensorState"`
		SensorAge    Scalar `json:"sensorAge"`
	}

	// GraphConnection is the connection object embedded in the graph payload
	GraphConnection struct {
		Connection
		GlucoseMeasurement *GlucoseMeasurement `json:"glucoseMeasurement"`
		Sensor             *Sensor             `json:"sensor"`
	}

	GraphData struct {
		Connection *GraphConnection `json:"connection"`
		GraphData  []GraphReading   `json:"graphData"`
	}

	GraphResponse struct {
		Status *int       `json:"status"`
		Data   *GraphData `json:"data"`
	}

	// GlucoseSnapshot is what one graph call tells about one connection.
	// Current and Sensor are nil when the API did not send them.
	GlucoseSnapshot struct {
		Connection Connection
		Current    *GlucoseMeasurement
		History    []GraphReading
		Sensor     *Sensor
	}
)

const (
	GlucoseStatusHigh   = "HIGH"
	GlucoseStatusLow    = "LOW"
	GlucoseStatusNormal = "NORMAL"
)

func (m *GlucoseMeasurement) isEmpty() bool {
	return m.ValueInMgPerDl.IsAbsent() && m.TrendMessage.IsAbsent() && m.TrendArrow.IsAbsent() &&
		m.Timestamp.IsAbsent() && m.FactoryTimestamp.IsAbsent() && m.IsHigh == nil && m.IsLow == nil
}

func (m *GlucoseMeasurement) High() bool {
	return m.IsHigh != nil && *m.IsHigh
}

func (m *GlucoseMeasurement) Low() bool {
	return m.IsLow != nil && *m.IsLow
}

// Status summarises the high/low flags, high wins when both are set
func (m *GlucoseMeasurement) Status() string {
	if m.High() {
		return GlucoseStatusHigh
	}
	if m.Low() {
		return GlucoseStatusLow
	}
	return GlucoseStatusNormal
}

func (s *Sensor) isEmpty() bool {
	return s.DeviceID.IsAbsent() && s.SerialNumber.IsAbsent() && s.SensorState.IsAbsent() && s.SensorAge.IsAbsent()
}

// NewGlucoseSnapshot assembles a snapshot from the graph payload, tolerating
// any part of it being missing. Empty objects are treated as missing.
func NewGlucoseSnapshot(data *GraphData) *GlucoseSnapshot {
	snapshot := &GlucoseSnapshot{History: []GraphReading{}}
	if data == nil {
		return snapshot
	}
	if data.GraphData != nil {
		snapshot.History = data.GraphData
	}
	if data.Connection == nil {
		return snapshot
	}
	snapshot.Connection = data.Connection.Connection
	if m := data.Connection.GlucoseMeasurement; m != nil && !m.isEmpty() {
		snapshot.Current = m
	}
	if s := data.Connection.Sensor; s != nil && !s.isEmpty() {
		snapshot.Sensor = s
	}
	return snapshot
}

// LatestReadings returns at most n readings from the end of the history
func (s *GlucoseSnapshot) LatestReadings(n int) []GraphReading {
	if n <= 0 {
		return []GraphReading{}
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
