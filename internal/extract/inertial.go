package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"svoextract/internal/framesource"
)

// InertialFileName is the per-recording inertial log name.
const InertialFileName = "imu_data.csv"

var inertialHeader = []string{
	"frame", "timestamp_ms",
	"orientation_x", "orientation_y", "orientation_z", "orientation_w",
	"angular_velocity_x", "angular_velocity_y", "angular_velocity_z",
	"linear_acceleration_x", "linear_acceleration_y", "linear_acceleration_z",
}

type inertialRow struct {
	index  int
	sample framesource.SensorSample
}

// InertialLog buffers inertial samples across a recording run.
type InertialLog struct {
	rows []inertialRow
}

// Collect records the sample for the grabbed frame. Frames without inertial
// data are skipped.
func (l *InertialLog) Collect(frame framesource.Frame, index int) error {
	sample, err := frame.RetrieveSensorSample()
	if errors.Is(err, framesource.ErrUnavailable) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("retrieve sensor sample: %w", err)
	}
	l.rows = append(l.rows, inertialRow{index: index, sample: sample})
	return nil
}

// Len reports the number of buffered samples.
func (l *InertialLog) Len() int {
	return len(l.rows)
}

// WriteCSV writes the header row followed by one row per sample.
func (l *InertialLog) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(inertialHeader); err != nil {
		return err
	}
	for _, row := range l.rows {
		s := row.sample
		record := []string{strconv.Itoa(row.index), strconv.FormatInt(s.TimestampMs, 10)}
		for _, v := range s.Orientation {
			record = append(record, formatFloat64(v))
		}
		for _, v := range s.AngularVelocity {
			record = append(record, formatFloat64(v))
		}
		for _, v := range s.LinearAcceleration {
			record = append(record, formatFloat64(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat64(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
