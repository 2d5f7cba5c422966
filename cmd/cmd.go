package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"cdo-tour-client/internal/catalog"
	"cdo-tour-client/internal/client"
	"cdo-tour-client/internal/config"
	"cdo-tour-client/internal/services"
	"cdo-tour-client/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Run is the CLI entrypoint
func Run() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Usage = usage
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Open the credential store
	st, err := store.NewFileStore(cfg.Credentials.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open credential store")
	}
	defer st.Close()
	st.OnExternalChange(func() {
		log.Debug().Msg("Session changed in another process")
	})

	// Initialize client and services
	httpClient := &http.Client{Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second}
	apiClient := client.New(cfg.API.BaseURL, httpClient, st)
	sessions := services.NewSessionService(apiClient, st)
	bookings := services.NewBookingService(apiClient)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if err := dispatch(ctx, args[0], args[1:], sessions, bookings); err != nil {
		exitWith(err)
	}
}

// dispatch runs one subcommand
func dispatch(ctx context.Context, name string, args []string, sessions *services.SessionService, bookings *services.BookingService) error {
	switch name {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)
		profile, err := sessions.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s\n", profile.Username)
		return nil

	case "logout":
		return sessions.Logout()

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)
		if err := sessions.Register(ctx, *name, *email, *password); err != nil {
			return err
		}
		fmt.Println("Registered. You can now log in.")
		return nil

	case "status":
		if !sessions.Authenticated() {
			fmt.Println("Not logged in")
			return nil
		}
		profile, _ := sessions.CurrentProfile()
		fmt.Printf("Logged in as %s <%s>\n", profile.Username, profile.Email)
		if exp, ok := sessions.AccessTokenExpiry(); ok {
			fmt.Printf("Access token expires %s\n", exp.Format(time.RFC1123))
		}
		return nil

	case "attractions":
		for _, a := range catalog.All() {
			fmt.Printf("%s  %-28s %-26s %.1f  %s\n", a.ID, a.Title, a.Location, a.Rating, a.Category)
		}
		return nil

	case "attraction":
		fs := flag.NewFlagSet("attraction", flag.ExitOnError)
		id := fs.String("id", "", "attraction ID")
		fs.Parse(args)
		a, ok := catalog.ByID(*id)
		if !ok {
			return fmt.Errorf("attraction %q not found", *id)
		}
		fmt.Printf("%s (%s)\n%s\nRating: %.1f  Category: %s\n", a.Title, a.Location, a.Description, a.Rating, a.Category)
		return nil

	case "bookings":
		list, err := bookings.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("You have no bookings yet.")
			return nil
		}
		for _, b := range list {
			fmt.Printf("%d  %-28s %s  %d guest(s)\n", b.ID, b.Destination, b.Date, b.Guests)
		}
		return nil

	case "book":
		fs := flag.NewFlagSet("book", flag.ExitOnError)
		attractionID := fs.String("attraction", "", "attraction ID to book")
		destination := fs.String("destination", "", "destination name (overrides -attraction)")
		date := fs.String("date", "", "booking date (YYYY-MM-DD)")
		guests := fs.Int("guests", 1, "number of tickets")
		fs.Parse(args)

		dest := *destination
		if dest == "" {
			a, ok := catalog.ByID(*attractionID)
			if !ok {
				return fmt.Errorf("attraction %q not found", *attractionID)
			}
			dest = a.Title
		}
		booking, err := bookings.Create(ctx, dest, *date, *guests)
		if err != nil {
			return err
		}
		fmt.Printf("Booking confirmed: %d ticket(s) for %s on %s\n", booking.Guests, booking.Destination, booking.Date)
		return nil

	case "rebook":
		fs := flag.NewFlagSet("rebook", flag.ExitOnError)
		id := fs.Int64("id", 0, "booking ID")
		destination := fs.String("destination", "", "destination name")
		date := fs.String("date", "", "booking date (YYYY-MM-DD)")
		guests := fs.Int("guests", 1, "number of tickets")
		fs.Parse(args)
		booking, err := bookings.Update(ctx, *id, *destination, *date, *guests)
		if err != nil {
			return err
		}
		fmt.Printf("Booking %d updated: %s on %s, %d guest(s)\n", booking.ID, booking.Destination, booking.Date, booking.Guests)
		return nil

	case "cancel":
		fs := flag.NewFlagSet("cancel", flag.ExitOnError)
		id := fs.Int64("id", 0, "booking ID")
		fs.Parse(args)
		if err := bookings.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Println("Booking cancelled")
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", name)
	}
}

// exitWith prints a user-facing message for the error and exits non-zero
func exitWith(err error) {
	switch {
	case errors.Is(err, client.ErrUnauthenticated):
		fmt.Fprintln(os.Stderr, "You are not logged in. Run 'cdo-tour login' first.")
	case errors.Is(err, client.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, "Your session has expired. Run 'cdo-tour login' to continue where you left off.")
	case errors.Is(err, client.ErrInvalidCredentials):
		fmt.Fprintln(os.Stderr, "Invalid email or password.")
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: cdo-tour [-config config.yaml] <command> [flags]

Commands:
  login       -email -password         log in and store the session
  logout                               clear the stored session
  register    -name -email -password   create an account
  status                               show session state
  attractions                          list the attraction catalog
  attraction  -id                      show one attraction
  bookings                             list your bookings
  book        -attraction|-destination -date -guests
  rebook      -id -destination -date -guests
  cancel      -id`)
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
