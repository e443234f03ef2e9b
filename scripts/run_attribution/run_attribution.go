package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jinzhu/now"
	log "github.com/sirupsen/logrus"

	C "attribution/config"
	"attribution/model/store"
	"attribution/task/attribution"
	U "attribution/util"
)

const defaultAppName = "run_attribution"

func main() {
	envFlag := flag.String("env", C.DEVELOPMENT, "environment, one of development|staging|production")

	dbHostFlag := flag.String("db_host", C.PostgresDefaultDBParams.Host, "postgres host")
	dbPortFlag := flag.Int("db_port", C.PostgresDefaultDBParams.Port, "postgres port")
	dbUserFlag := flag.String("db_user", C.PostgresDefaultDBParams.User, "postgres user")
	dbNameFlag := flag.String("db_name", C.PostgresDefaultDBParams.Name, "postgres db name")
	dbPassFlag := flag.String("db_pass", C.PostgresDefaultDBParams.Password, "postgres password")

	startDateFlag := flag.String("start_date", "", "start date YYYY-MM-DD, inclusive. Defaults to a lookback window.")
	endDateFlag := flag.String("end_date", "", "end date YYYY-MM-DD, inclusive. Defaults to start date.")
	lookbackDaysFlag := flag.Int("lookback_days", 1, "full days to cover when no start_date is given")
	batchIDFlag := flag.String("batch_id", "", "pin a batch id to replace a prior run's results")
	timezoneFlag := flag.String("timezone", string(U.TimeZoneStringIST), "timezone for hour bucketing")
	numRoutinesFlag := flag.Int("num_routines", 4, "per-order processing fan-out")
	attributionDebugFlag := flag.Int("attribution_debug", 0, "log per-order resolution when 1")
	appNameFlag := flag.String("app_name", "", "override default app_name")
	flag.Parse()

	appName := C.GetAppName(defaultAppName, *appNameFlag)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("app_name", appName).WithField("panic", r).
				Error("Panic in attribution run.")
			os.Exit(1)
		}
	}()

	config := &C.Configuration{
		AppName: appName,
		Env:     *envFlag,
		DBInfo: C.DBConf{
			Host:     *dbHostFlag,
			Port:     *dbPortFlag,
			User:     *dbUserFlag,
			Name:     *dbNameFlag,
			Password: *dbPassFlag,
		},
		Timezone:         *timezoneFlag,
		NumRoutines:      *numRoutinesFlag,
		AttributionDebug: *attributionDebugFlag,
	}
	C.OverrideDBConfFromEnv(&config.DBInfo)

	if err := C.InitConf(config); err != nil {
		log.WithError(err).Fatal("Failed to init config.")
	}
	if err := C.InitDB(*config); err != nil {
		log.WithError(err).Fatal("Failed to init db.")
	}
	defer C.SafeFlushAllCollectors()

	from, to, err := resolveDateRange(*startDateFlag, *endDateFlag, *lookbackDaysFlag, C.GetTimezone())
	if err != nil {
		log.WithError(err).Fatal("Invalid date range.")
	}

	status, runErr := attribution.Run(store.GetStore(), from, to, *batchIDFlag)
	summary, _ := json.Marshal(status)
	fmt.Println(string(summary))
	if runErr != nil {
		os.Exit(1)
	}
}

// resolveDateRange turns the inclusive start/end date flags into a
// half-open [from, to) window of local midnights. With no start date the
// run covers the last lookbackDays full days in the bucketing timezone.
func resolveDateRange(startDate, endDate string, lookbackDays int, timezone U.TimeZoneString) (time.Time, time.Time, error) {
	location := U.GetTimeLocationFor(timezone)
	parser := now.New(time.Now().In(location))

	if startDate == "" {
		if lookbackDays < 1 {
			lookbackDays = 1
		}
		to := parser.BeginningOfDay()
		return to.AddDate(0, 0, -lookbackDays), to, nil
	}

	from, err := time.ParseInLocation("2006-01-02", startDate, location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	to := from.AddDate(0, 0, 1)
	if endDate != "" {
		end, err := time.ParseInLocation("2006-01-02", endDate, location)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = end.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date before start_date")
	}
	return from, to, nil
}
