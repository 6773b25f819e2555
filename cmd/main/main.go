package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"weather-observer/src/config"
	"weather-observer/src/data_source/timeline"
	"weather-observer/src/helpers"
	"weather-observer/src/interfaces"
	"weather-observer/src/logger"
	"weather-observer/src/models"
	"weather-observer/src/network"
	"weather-observer/src/server"
	"weather-observer/src/storage"
)

// -----------------------------------------------------------------------------

const usage = `usage: weather-observer [-config path] <command> [arguments]

commands:
  ll      [patterns]               list locations
  ls      [patterns]               list history summaries
  ld      [patterns]               list history dates
  lh      -from date [-thru date] <pattern>   show daily histories
  al      -name .. -city .. -state .. -alias ..  add a location
  ah      -from date [-thru date] <pattern>   fetch and store histories
  search  [-city ..] [-state ..] [-zip ..]    search the US Cities database
  states                           list US states
  admin   init|drop|reload|uscities           administer the relational store
  serve                            run the REST/websocket server
`

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	command, commandArgs := args[0], args[1:]
	if err := run(cfg, appLogger, command, commandArgs); err != nil {
		appLogger.Critical("%s failed: %v", command, err)
	}
}

// -----------------------------------------------------------------------------

func run(cfg *config.Config, log *logger.Logger, command string, args []string) error {
	switch command {
	case "admin":
		return runAdmin(cfg, log, args)
	}

	backend, err := storage.CreateBackend(cfg.MConfig, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	switch command {
	case "ll":
		return listLocations(backend, args)
	case "ls":
		return listSummaries(backend, args)
	case "ld":
		return listHistoryDates(backend, args)
	case "lh":
		return listHistories(backend, args)
	case "al":
		return addLocation(backend, args)
	case "ah":
		return addHistories(cfg, log, backend, args)
	case "search":
		return searchCities(backend, args)
	case "states":
		return listStates(backend)
	case "serve":
		return server.NewWeatherServer(cfg.MConfig, backend, log).Start()
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command '%s'", command)
	}
}

// -----------------------------------------------------------------------------

// nameFilters turns positional arguments into name filters.
func nameFilters(args []string) models.MLocationFilters {
	var filters models.MLocationFilters
	for _, arg := range args {
		filters = append(filters, models.MLocationFilter{Name: arg})
	}
	return filters
}

// -----------------------------------------------------------------------------

func listLocations(backend interfaces.IBackend, args []string) error {
	locations, err := backend.GetLocations(nameFilters(args))
	if err != nil {
		return err
	}
	fmt.Printf("%-30s %-15s %-11s %-12s %s\n", "Location", "Alias", "Latitude", "Longitude", "Timezone")
	for _, l := range locations {
		fmt.Printf("%-30s %-15s %-11s %-12s %s\n", l.Name, l.Alias, l.Latitude, l.Longitude, l.TZ)
	}
	return nil
}

// -----------------------------------------------------------------------------

func listSummaries(backend interfaces.IBackend, args []string) error {
	summaries, err := backend.GetHistorySummaries(nameFilters(args))
	if err != nil {
		return err
	}
	fmt.Printf("%-30s %9s %13s %13s %13s\n", "Location", "Count", "Overall", "Raw", "Store")
	for _, s := range summaries {
		fmt.Printf("%-30s %9d %13d %13d %13d\n",
			s.Location.Name, s.Count, s.OverallSize, s.RawSize, s.StoreSize)
	}
	return nil
}

// -----------------------------------------------------------------------------

func listHistoryDates(backend interfaces.IBackend, args []string) error {
	historyDates, err := backend.GetHistoryDates(nameFilters(args))
	if err != nil {
		return err
	}
	for _, hd := range historyDates {
		ranges := make([]string, len(hd.DateRanges))
		for i, r := range hd.DateRanges {
			ranges[i] = r.String()
		}
		fmt.Printf("%-30s %s\n", hd.Location.Name, strings.Join(ranges, ", "))
	}
	return nil
}

// -----------------------------------------------------------------------------

func parseRangeFlags(name string, args []string) (models.MDateRange, []string, error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	from := flags.String("from", "", "first date (yyyy-mm-dd)")
	thru := flags.String("thru", "", "last date (defaults to -from)")
	if err := flags.Parse(args); err != nil {
		return models.MDateRange{}, nil, err
	}
	if *from == "" {
		return models.MDateRange{}, nil, fmt.Errorf("-from is required")
	}
	if *thru == "" {
		*thru = *from
	}

	start, err := time.ParseInLocation(models.DateFormat, *from, time.UTC)
	if err != nil {
		return models.MDateRange{}, nil, fmt.Errorf("bad -from date '%s'", *from)
	}
	end, err := time.ParseInLocation(models.DateFormat, *thru, time.UTC)
	if err != nil {
		return models.MDateRange{}, nil, fmt.Errorf("bad -thru date '%s'", *thru)
	}
	dateRange, err := models.NewDateRange(start, end)
	return dateRange, flags.Args(), err
}

// -----------------------------------------------------------------------------

func listHistories(backend interfaces.IBackend, args []string) error {
	dateRange, rest, err := parseRangeFlags("lh", args)
	if err != nil {
		return err
	}

	histories, err := backend.GetDailyHistories(nameFilters(rest), dateRange)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", histories.Location.Name, dateRange)
	fmt.Printf("%-12s %8s %8s %8s %s\n", "Date", "High", "Low", "Precip", "Summary")
	for _, h := range histories.Histories {
		fmt.Printf("%-12s %8s %8s %8s %s\n",
			h.Date.Format(models.DateFormat),
			formatMetric(h.TempMax), formatMetric(h.TempMin), formatMetric(h.Precip),
			formatText(h.Summary))
	}
	return nil
}

func formatMetric(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *value)
}

func formatText(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// -----------------------------------------------------------------------------

func addLocation(backend interfaces.IBackend, args []string) error {
	flags := flag.NewFlagSet("al", flag.ContinueOnError)
	var location models.MLocation
	flags.StringVar(&location.Name, "name", "", "location name")
	flags.StringVar(&location.City, "city", "", "city")
	flags.StringVar(&location.State, "state", "", "state name")
	flags.StringVar(&location.StateID, "state_id", "", "two letter state id")
	flags.StringVar(&location.Alias, "alias", "", "unique alias")
	flags.StringVar(&location.Latitude, "lat", "", "latitude")
	flags.StringVar(&location.Longitude, "long", "", "longitude")
	flags.StringVar(&location.TZ, "tz", "", "IANA timezone")
	if err := flags.Parse(args); err != nil {
		return err
	}
	return backend.AddLocation(location)
}

// -----------------------------------------------------------------------------

// addHistories fetches histories from the timeline service and stores them.
func addHistories(cfg *config.Config, log *logger.Logger, backend interfaces.IBackend, args []string) error {
	dateRange, rest, err := parseRangeFlags("ah", args)
	if err != nil {
		return err
	}

	locations, err := backend.GetLocations(nameFilters(rest))
	if err != nil {
		return err
	}
	switch len(locations) {
	case 0:
		return helpers.NewNotFoundError("no location matches the arguments")
	case 1:
	default:
		return helpers.NewAmbiguousError("the arguments match multiple locations")
	}
	location := locations[0]

	netMgr := network.NewAsyncNetworkManager(cfg.MConfig, log)
	client := timeline.NewTimelineSource(cfg.MConfig, netMgr, log)
	if err := client.Execute(location, dateRange); err != nil {
		return err
	}

	histories, err := helpers.WaitForHistories(client, clockwork.NewRealClock(),
		time.Duration(cfg.Timeline.PollTimeoutSec)*time.Second,
		time.Duration(cfg.Timeline.PollIntervalMS)*time.Millisecond)
	if err != nil {
		return err
	}

	count, err := backend.AddDailyHistories(histories)
	if err != nil {
		return err
	}
	fmt.Printf("stored %d histories for %s\n", count, location.Name)
	return nil
}

// -----------------------------------------------------------------------------

func searchCities(backend interfaces.IBackend, args []string) error {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	var filter models.MCityFilter
	flags.StringVar(&filter.Name, "city", "", "city pattern")
	flags.StringVar(&filter.State, "state", "", "state pattern")
	flags.StringVar(&filter.ZipCode, "zip", "", "zip code pattern")
	flags.IntVar(&filter.Limit, "limit", models.DefaultCityLimit, "result limit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	locations, err := backend.SearchLocations(filter)
	if err != nil {
		return err
	}
	fmt.Printf("%-30s %-11s %-12s %s\n", "City", "Latitude", "Longitude", "Timezone")
	for _, l := range locations {
		fmt.Printf("%-30s %-11s %-12s %s\n", l.Name, l.Latitude, l.Longitude, l.TZ)
	}
	return nil
}

// -----------------------------------------------------------------------------

func listStates(backend interfaces.IBackend) error {
	states, err := backend.GetStates()
	if err != nil {
		return err
	}
	for _, state := range states {
		fmt.Printf("%-25s %s\n", state.Name, state.StateID)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Administration
// -----------------------------------------------------------------------------

func runAdmin(cfg *config.Config, log *logger.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("admin requires a subcommand (init, drop, reload, uscities)")
	}

	dir, err := storage.NewWeatherDir(cfg.Storage.WeatherDir)
	if err != nil {
		return err
	}

	switch args[0] {
	case "init":
		flags := flag.NewFlagSet("admin init", flag.ContinueOnError)
		drop := flags.Bool("drop", false, "drop the existing schema first")
		load := flags.Bool("load", false, "load locations and archives")
		threads := flags.Int("threads", 4, "archive loader goroutines")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		return storage.InitSQLiteDB(dir, *drop, *load, *threads, log)

	case "drop":
		flags := flag.NewFlagSet("admin drop", flag.ContinueOnError)
		deleteFile := flags.Bool("delete", false, "delete the database file")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		return storage.DropSQLiteDB(dir, *deleteFile, log)

	case "reload":
		usCities, err := storage.NewUSCities(dir, log)
		if err != nil {
			return err
		}
		backend, err := storage.NewSQLiteBackend(dir, usCities, log)
		if err != nil {
			return err
		}
		defer backend.Close()
		return backend.Reload(nameFilters(args[1:]))

	case "uscities":
		return runUSCities(cfg, log, dir, args[1:])

	default:
		return fmt.Errorf("unknown admin subcommand '%s'", args[0])
	}
}

// -----------------------------------------------------------------------------

func runUSCities(cfg *config.Config, log *logger.Logger, dir *storage.WeatherDir, args []string) error {
	flags := flag.NewFlagSet("admin uscities", flag.ContinueOnError)
	load := flags.Bool("load", false, "rebuild from the configured CSV")
	info := flags.Bool("info", false, "show row counts")
	remove := flags.Bool("delete", false, "delete the reference database")
	if err := flags.Parse(args); err != nil {
		return err
	}

	usCities, err := storage.NewUSCities(dir, log)
	if err != nil {
		return err
	}
	defer usCities.Close()

	switch {
	case *load:
		return usCities.Load(cfg.Storage.USCitiesCSV)
	case *remove:
		return usCities.Delete()
	case *info:
		states, cities, zips, err := usCities.Info()
		if err != nil {
			return err
		}
		fmt.Printf("states: %d\ncities: %d\nzip codes: %d\n", states, cities, zips)

		metrics, err := usCities.StateMetrics()
		if err != nil {
			return err
		}
		for _, m := range metrics {
			fmt.Printf("%-25s %-4s %6d\n", m.Name, m.StateID, m.CityCount)
		}
		return nil
	default:
		return fmt.Errorf("admin uscities requires -load, -info or -delete")
	}
}
