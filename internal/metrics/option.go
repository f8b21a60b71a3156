package metrics

type Config struct {
	ServiceName  string
	Prometheus   bool
	OTLPEndpoint string
	Insecure     bool
}

type OptionFn func(config Config) Config

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

func WithPrometheus() OptionFn {
	return func(config Config) Config {
		config.Prometheus = true
		return config
	}
}

func WithOTLPEndpoint(endpoint string, insecure bool) OptionFn {
	return func(config Config) Config {
		config.OTLPEndpoint = endpoint
		config.Insecure = insecure
		return config
	}
}
