package stream

// DefaultZoomSteps are the zoom levels at which the wanted LOD gets one step
// more detailed.
var DefaultZoomSteps = []float64{1.5, 3, 6, 12}

// Config controls a Streamer.
type Config struct {
	Workers   int       // decode goroutines, 0 for GOMAXPROCS
	QueueSize int       // decode jobs buffered before requests wait frame-side
	ZoomSteps []float64 // ascending
}

// Option is a functional option for configuring a Streamer.
type Option func(*Config)

// WithWorkers sets the number of decode goroutines.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithQueueSize sets how many decode jobs may wait for a worker.
func WithQueueSize(n int) Option {
	return func(c *Config) {
		c.QueueSize = n
	}
}

// WithZoomSteps replaces DefaultZoomSteps. Steps must be ascending.
func WithZoomSteps(steps ...float64) Option {
	return func(c *Config) {
		c.ZoomSteps = append([]float64(nil), steps...)
	}
}

func defaultConfig() *Config {
	return &Config{
		ZoomSteps: DefaultZoomSteps,
	}
}
