package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	jwtpkg "github.com/foodrush/tracking/internal/pkg/jwt"
	"github.com/foodrush/tracking/internal/pkg/logger"
	"github.com/foodrush/tracking/internal/pkg/models"
	"github.com/foodrush/tracking/tracker/channel"
	"github.com/foodrush/tracking/tracker/route"
	"github.com/foodrush/tracking/tracker/sampler"
	"github.com/foodrush/tracking/tracker/session"
)

// scenario is the YAML description of one simulated participant.
type scenario struct {
	OrderID       string  `mapstructure:"order_id"`
	ParticipantID string  `mapstructure:"participant_id"`
	Role          string  `mapstructure:"role"`
	ServerURL     string  `mapstructure:"server_url"`
	JWTSecret     string  `mapstructure:"jwt_secret"`
	RoutingURL    string  `mapstructure:"routing_url"`
	IntervalMS    int     `mapstructure:"interval_ms"`
	AccuracyM     float64 `mapstructure:"accuracy_m"`

	Restaurant struct {
		Name      string  `mapstructure:"name"`
		Latitude  float64 `mapstructure:"latitude"`
		Longitude float64 `mapstructure:"longitude"`
	} `mapstructure:"restaurant"`

	Waypoints []struct {
		Latitude  float64 `mapstructure:"latitude"`
		Longitude float64 `mapstructure:"longitude"`
	} `mapstructure:"waypoints"`
}

func loadScenario(path string) (*scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("routing_url", "https://router.project-osrm.org")
	v.SetDefault("interval_ms", 1000)
	v.SetDefault("accuracy_m", 10.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var sc scenario
	if err := v.Unmarshal(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func main() {
	scenarioPath := flag.String("scenario", "scenario.yaml", "path to the scenario YAML")
	flag.Parse()

	appLogger, err := logger.New(models.LoggerConfig{Level: "debug"}, nil)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Close()
	logger.SetGlobalLogger(appLogger)

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		appLogger.Fatal("Failed to load scenario", logger.Err(err))
	}

	identity := models.OrderTrackingIdentity{
		OrderID:       sc.OrderID,
		ParticipantID: sc.ParticipantID,
		Role:          models.Role(sc.Role),
	}
	if !identity.Role.Valid() {
		appLogger.Fatal("Invalid role in scenario", logger.String("role", sc.Role))
	}

	token, _, err := jwtpkg.GenerateToken(identity.ParticipantID, identity.Role, models.JWTConfig{
		Secret:     sc.JWTSecret,
		Expiration: 60,
		Issuer:     "tracker-sim",
	})
	if err != nil {
		appLogger.Fatal("Failed to sign token", logger.Err(err))
	}

	waypoints := make([]models.GeoPoint, 0, len(sc.Waypoints))
	for _, wp := range sc.Waypoints {
		waypoints = append(waypoints, models.GeoPoint{Latitude: wp.Latitude, Longitude: wp.Longitude})
	}
	if len(waypoints) == 0 {
		appLogger.Fatal("Scenario has no waypoints")
	}

	provider := &sampler.SimProvider{
		Waypoints: waypoints,
		Interval:  time.Duration(sc.IntervalMS) * time.Millisecond,
		Accuracy:  sc.AccuracyM,
	}
	smp := sampler.New(provider, sampler.Config{
		MinInterval:     time.Second,
		MinDisplacement: 1,
	}, appLogger)

	ch := channel.New(identity, channel.Config{
		ServerURL: sc.ServerURL,
		Token:     token,
	}, appLogger)

	router := route.NewClient(models.RoutingConfig{
		BaseURL:        sc.RoutingURL,
		TimeoutSeconds: 10,
	}, appLogger)

	sess := session.New(identity, models.RestaurantEndpoint{
		Name: sc.Restaurant.Name,
		Location: models.GeoPoint{
			Latitude:  sc.Restaurant.Latitude,
			Longitude: sc.Restaurant.Longitude,
		},
	}, ch, smp, router, session.DefaultConfig(), appLogger)

	states, err := sess.Subscribe()
	if err != nil {
		appLogger.Fatal("Failed to subscribe to session", logger.Err(err))
	}

	if err := sess.Start(); err != nil {
		appLogger.Fatal("Failed to start session", logger.Err(err))
	}
	if err := sess.StartSharing(); err != nil {
		appLogger.Fatal("Failed to start sharing", logger.Err(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			logState(appLogger, state)
			if state.Error != nil && state.Error.Fatal {
				appLogger.Error("Session failed", logger.String("code", state.Error.Code))
				sess.Close()
				return
			}
		case <-quit:
			appLogger.Info("Shutting down simulator")
			sess.Close()
			return
		}
	}
}

func logState(l *logger.Logger, state models.TrackingState) {
	fields := []logger.Field{
		logger.Bool("connected", state.IsConnected),
		logger.Bool("sharing", state.IsSharing),
	}
	if state.CurrentLocation != nil {
		fields = append(fields,
			logger.Float64("lat", state.CurrentLocation.Point.Latitude),
			logger.Float64("lng", state.CurrentLocation.Point.Longitude))
	}
	if state.DistanceFormatted != "" {
		fields = append(fields, logger.String("distance", state.DistanceFormatted))
	}
	if state.Route != nil {
		fields = append(fields, logger.Int("route_points", len(state.Route.Points)))
	}
	if state.Error != nil {
		fields = append(fields, logger.String("error", state.Error.Code))
	}
	l.Info("Tracking state", fields...)
}
