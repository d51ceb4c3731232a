package models

import (
	"fmt"
	"slices"
)

// AddPoint appends a data point.
func (c *ChartContent) AddPoint(name string, value float64) {
	c.Data = append(c.Data, DataPoint{Name: name, Value: value})
}

// RemovePoint deletes data point i.
func (c *ChartContent) RemovePoint(i int) error {
	if i < 0 || i >= len(c.Data) {
		return fmt.Errorf("%w: point %d", ErrIndexOutOfRange, i)
	}
	c.Data = slices.Delete(c.Data, i, i+1)
	return nil
}

// SetPoint replaces data point i.
func (c *ChartContent) SetPoint(i int, name string, value float64) error {
	if i < 0 || i >= len(c.Data) {
		return fmt.Errorf("%w: point %d", ErrIndexOutOfRange, i)
	}
	c.Data[i] = DataPoint{Name: name, Value: value}
	return nil
}

// Known reports whether the chart type is one of bar, line or pie.
func (t ChartType) Known() bool {
	return t == ChartBar || t == ChartLine || t == ChartPie
}
