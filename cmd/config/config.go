package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/shipyard/cmd/util"
	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseProject                  = config.Parse
	writeProject                  = config.Write
	writeFile                     = os.WriteFile
	stat                          = os.Stat
	getWorkingDirectory           = os.Getwd
)

const maxNameLength = 63

// The ignore file written for new projects.
const defaultIgnoreFile = `# Paths that are never synced to the remote host. A leading / anchors the
# pattern to the project directory. Lines starting with "+ " re-include paths.
.git
*.pyc
.venv
`

// New creates a new `init` command.
func New() *cobra.Command {
	var cliOpts options
	cmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"config"},
		Short:   "Create the shipyard.yaml project config",
		Run: func(_ *cobra.Command, _ []string) {
			if err := setupProject(cliOpts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.name, "name", "",
		"The name of the project, used for the image and container. "+
			"Optional: If not set, `shipyard init` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.host, "host", "",
		"The ssh host to deploy to. "+
			"Optional: If not set, `shipyard init` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.dir, "dir", "",
		"The project directory on the remote host. "+
			"Optional: If not set, `shipyard init` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.publish, "publish", "",
		"The host port to container port mapping, e.g. 3001:3000. "+
			"Optional: If not set, `shipyard init` will interactively prompt.")
	cmd.Flags().BoolVar(&cliOpts.force, "force", false,
		"Overwrite the existing project config")
	return cmd
}

type options struct {
	name, host, dir, publish string
	force                    bool
}

func setupProject(cliOpts options) error {
	wd, err := getWorkingDirectory()
	if err != nil {
		return errors.WithContext(err, "get working directory")
	}

	path := filepath.Join(wd, config.ProjectConfigFile)
	if _, err := stat(path); err == nil && !cliOpts.force {
		return errors.NewFriendlyError("%q already exists. Run `shipyard init "+
			"--force` to overwrite it.", path)
	}

	project, err := generateProject(wd, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeProject(wd, project); err != nil {
		return errors.WithContext(err, "write config")
	}
	fmt.Fprintf(stdout, "Wrote config to %s\n", path)

	ignorePath := filepath.Join(wd, project.IgnoreFile)
	if _, err := stat(ignorePath); os.IsNotExist(err) {
		if err := writeFile(ignorePath, []byte(defaultIgnoreFile), 0644); err != nil {
			return errors.WithContext(err, "write ignore file")
		}
		fmt.Fprintf(stdout, "Wrote ignore file to %s\n", ignorePath)
	}
	return nil
}

func nameValidationFn(name string) (string, bool) {
	if len(name) > maxNameLength {
		return "The name must not be more than 63 characters. " +
			"Please pick another name.", false
	}

	re := regexp.MustCompile(`^[a-z0-9][-_.a-z0-9]*$`)
	if re.MatchString(name) {
		return "", true
	}

	return "This name contains invalid characters. " +
		"Please pick another name that only " +
		"uses the following characters:\n" +
		"1) lowercase letters (a-z) \n" +
		"2) numbers (0-9) \n" +
		"3) -, _ and . \n" +
		"Please ensure that your chosen name " +
		"starts with a letter or number.", false
}

func publishValidationFn(publish string) (string, bool) {
	mappings, err := nat.ParsePortSpec(publish)
	if err != nil {
		return fmt.Sprintf("Invalid port mapping: %s", err), false
	}

	for _, mapping := range mappings {
		if mapping.Binding.HostPort == "" {
			return "The port mapping must set a host port, e.g. 3001:3000.", false
		}
	}
	return "", true
}

func requiredValidationFn(resp string) (string, bool) {
	if strings.TrimSpace(resp) == "" {
		return "A value is required.", false
	}
	return "", true
}

func sanitizeName(original string) (sanitized string) {
	sanitized = strings.ToLower(original)
	noInvalidChar := regexp.MustCompile(`[^-_.a-z0-9]`)
	sanitized = noInvalidChar.ReplaceAllString(sanitized, "")
	noLeadingPunct := regexp.MustCompile(`^[-_.]*`)
	sanitized = noLeadingPunct.ReplaceAllString(sanitized, "")
	if len(sanitized) > maxNameLength {
		sanitized = sanitized[:maxNameLength]
	}

	if _, ok := nameValidationFn(sanitized); !ok {
		return ""
	}
	return sanitized
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateProject interacts with the user to decide what the project config
// should be. The defaults are based on the directory name, and any existing
// config is offered as an alternative.
func generateProject(wd string, cliOpts options) (config.Project, error) {
	currProject, err := parseProject(wd)
	if err != nil {
		log.WithError(err).Debug("Failed to read current config")
	}

	name := cliOpts.name
	if name == "" {
		err := ask(prompt{
			helpString: "Enter the name of the project.\n" +
				"It's used as the name of the image and the container.",
			prompt:        "Project name",
			defaultAnswer: sanitizeName(filepath.Base(wd)),
			currAnswer:    currProject.Name,
			field:         &name,
			validationFn:  nameValidationFn,
		})
		if err != nil {
			return config.Project{}, err
		}
	} else if msg, ok := nameValidationFn(name); !ok {
		return config.Project{}, errors.NewFriendlyError("%s", msg)
	}

	project := config.Example(name)
	project.Remote.Host = cliOpts.host
	project.Remote.Dir = cliOpts.dir
	project.Container.Publish = cliOpts.publish

	var prompts []prompt
	if cliOpts.host == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the host to deploy to.\n" +
				"It can be a hostname, or a Host alias from your ssh config.",
			prompt:        "Remote host",
			defaultAnswer: name,
			currAnswer:    currProject.Remote.Host,
			field:         &project.Remote.Host,
			validationFn:  requiredValidationFn,
		})
	}

	if cliOpts.dir == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the directory on the remote host that the project is synced to.",
			prompt:        "Remote directory",
			defaultAnswer: "~/" + name,
			currAnswer:    currProject.Remote.Dir,
			field:         &project.Remote.Dir,
			validationFn:  requiredValidationFn,
		})
	}

	if cliOpts.publish == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the port mapping for the container, as host port:container port.\n" +
				"Use a different host port for each project deployed to the same host.",
			prompt:        "Port mapping",
			defaultAnswer: "3000:3000",
			currAnswer:    currProject.Container.Publish,
			field:         &project.Container.Publish,
			validationFn:  publishValidationFn,
		})
	} else if msg, ok := publishValidationFn(cliOpts.publish); !ok {
		return config.Project{}, errors.NewFriendlyError("%s", msg)
	}

	for _, prompt := range prompts {
		if err := ask(prompt); err != nil {
			return config.Project{}, err
		}
	}

	project.Container.Volume.Host = strings.TrimSuffix(project.Remote.Dir, "/") + "/data"
	return project, nil
}

// ask prompts until the response passes validation, and stores it in the
// prompt's field.
func ask(prompt prompt) error {
	for {
		resp, err := promptUser(prompt.helpString, prompt.prompt,
			prompt.defaultAnswer, prompt.currAnswer)
		if err != nil {
			return errors.WithContext(err, "read response")
		}

		if prompt.validationFn != nil {
			if validationErr, ok := prompt.validationFn(resp); !ok {
				fmt.Fprintln(stdout, validationErr)
				continue
			}
		}

		*prompt.field = resp
		return nil
	}
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
