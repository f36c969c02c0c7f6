package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectlily/lily/internal/cron"
	"github.com/projectlily/lily/internal/shared/cmdutils"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage reminders delivered to the agent",
}

func init() {
	cronCmd.AddCommand(cronListCmd)
	cronCmd.AddCommand(cronAddCmd)
	cronCmd.AddCommand(cronRemoveCmd)
	cronCmd.AddCommand(cronEnableCmd)
}

// Reminder commands only edit the job file; a running agent picks the changes
// up on its next start.
func cronService() (*cron.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cron.NewService(cfg.CronStorePath(), nil), nil
}

// ---- list ------------------------------------------------------------------

var cronListAll bool

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders",
	RunE: func(_ *cobra.Command, _ []string) error {
		svc, err := cronService()
		if err != nil {
			return err
		}
		jobs := svc.ListJobs(cronListAll)
		if len(jobs) == 0 {
			fmt.Println("No reminders.")
			return nil
		}
		fmt.Printf("%-10s %-20s %-25s %-10s %-20s\n", "ID", "Name", "Schedule", "Status", "Next Run")
		fmt.Println(cmdutils.Rule(88))
		for _, j := range jobs {
			status := "enabled"
			if !j.Enabled {
				status = "disabled"
			}
			nextRun := ""
			if j.State.NextRunAtMs != nil {
				nextRun = time.UnixMilli(*j.State.NextRunAtMs).Format("2006-01-02 15:04")
			}
			fmt.Printf("%-10s %-20s %-25s %-10s %-20s\n",
				j.ID, cmdutils.Truncate(j.Name, 19), cmdutils.Truncate(j.Schedule.Describe(), 24), status, nextRun)
		}
		return nil
	},
}

func init() {
	cronListCmd.Flags().BoolVarP(&cronListAll, "all", "a", false, "Include disabled reminders")
}

// ---- add -------------------------------------------------------------------

var (
	cronAddName  string
	cronAddMsg   string
	cronAddEvery time.Duration
	cronAddCron  string
	cronAddTZ    string
	cronAddAt    string
	cronAddKeep  bool
)

var cronAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a reminder",
	RunE: func(_ *cobra.Command, _ []string) error {
		if cronAddTZ != "" && cronAddCron == "" {
			return fmt.Errorf("--tz can only be used with --cron")
		}
		sched, err := cronScheduleFromFlags()
		if err != nil {
			return err
		}

		svc, err := cronService()
		if err != nil {
			return err
		}
		job, err := svc.AddJob(cronAddName, cronAddMsg, sched, sched.Kind == cron.KindAt && !cronAddKeep)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added reminder '%s' (%s), %s\n", job.Name, job.ID, job.Schedule.Describe())
		return nil
	},
}

func cronScheduleFromFlags() (cron.Schedule, error) {
	switch {
	case cronAddEvery > 0:
		return cron.Every(cronAddEvery), nil
	case cronAddCron != "":
		return cron.Cron(cronAddCron, cronAddTZ), nil
	case cronAddAt != "":
		dt, err := time.ParseInLocation("2006-01-02T15:04:05", cronAddAt, time.Local)
		if err != nil {
			dt, err = time.Parse(time.RFC3339, cronAddAt)
			if err != nil {
				return cron.Schedule{}, fmt.Errorf("invalid --at value %q: %w", cronAddAt, err)
			}
		}
		return cron.At(dt), nil
	default:
		return cron.Schedule{}, fmt.Errorf("must specify --every, --cron, or --at")
	}
}

func init() {
	cronAddCmd.Flags().StringVarP(&cronAddName, "name", "n", "", "Reminder name (defaults to the message)")
	cronAddCmd.Flags().StringVarP(&cronAddMsg, "message", "m", "", "Text delivered to the agent (required)")
	cronAddCmd.Flags().DurationVarP(&cronAddEvery, "every", "e", 0, "Repeat interval, e.g. 30m")
	cronAddCmd.Flags().StringVar(&cronAddCron, "cron", "", "Cron expression (e.g. '0 9 * * *')")
	cronAddCmd.Flags().StringVar(&cronAddTZ, "tz", "", "IANA timezone for --cron")
	cronAddCmd.Flags().StringVar(&cronAddAt, "at", "", "Run once at ISO datetime")
	cronAddCmd.Flags().BoolVar(&cronAddKeep, "keep", false, "Keep a one-time reminder (disabled) after it fires")

	_ = cronAddCmd.MarkFlagRequired("message")
}

// ---- remove / enable -------------------------------------------------------

var cronRemoveCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		svc, err := cronService()
		if err != nil {
			return err
		}
		if svc.RemoveJob(args[0]) {
			fmt.Printf("✓ Removed reminder %s\n", args[0])
		} else {
			fmt.Printf("Reminder %s not found\n", args[0])
		}
		return nil
	},
}

var cronEnableDisable bool

var cronEnableCmd = &cobra.Command{
	Use:   "enable <job-id>",
	Short: "Enable (or disable) a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		svc, err := cronService()
		if err != nil {
			return err
		}
		job, ok := svc.EnableJob(args[0], !cronEnableDisable)
		if !ok {
			fmt.Printf("Reminder %s not found\n", args[0])
			return nil
		}
		action := "enabled"
		if cronEnableDisable {
			action = "disabled"
		}
		fmt.Printf("✓ Reminder '%s' %s\n", job.Name, action)
		return nil
	},
}

func init() {
	cronEnableCmd.Flags().BoolVar(&cronEnableDisable, "disable", false, "Disable instead of enable")
}
