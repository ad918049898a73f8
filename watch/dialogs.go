package watch

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/icon"
	"github.com/lectio-cli/lectio/log"
	"github.com/lectio-cli/lectio/open"
	"github.com/lectio-cli/lectio/style"
	"github.com/lectio-cli/lectio/util"
)

func title(text string) {
	fmt.Fprintln(os.Stdout, style.Title(text))
}

func fail(text string) {
	fmt.Fprintf(os.Stdout, "%s %s\n", icon.Get(icon.Fail), text)
}

func success(text string) {
	fmt.Fprintf(os.Stdout, "%s %s\n", icon.Get(icon.Success), text)
}

func working(text string) (erase func()) {
	return util.PrintErasable(fmt.Sprintf("%s %s", icon.Get(icon.Progress), text))
}

// surveyReviewer collects the course review through interactive prompts.
type surveyReviewer struct{}

func (surveyReviewer) CollectReview(course *content.Course) (rating int, comment string, ok bool) {
	var wantsReview bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("You finished %q! Leave a review?", course.Title),
		Default: true,
	}
	if err := survey.AskOne(prompt, &wantsReview); err != nil || !wantsReview {
		return 0, "", false
	}

	var stars string
	ratingPrompt := &survey.Select{
		Message: "How would you rate this course?",
		Options: []string{"5 - excellent", "4 - good", "3 - average", "2 - poor", "1 - terrible"},
	}
	if err := survey.AskOne(ratingPrompt, &stars); err != nil {
		return 0, "", false
	}
	rating = int(stars[0] - '0')

	commentPrompt := &survey.Input{
		Message: "Anything you want to tell the instructor? (optional)",
	}
	if err := survey.AskOne(commentPrompt, &comment); err != nil {
		return 0, "", false
	}

	return rating, comment, true
}

// surveyCelebrant renders the congratulations ceremony and routes the primary
// action to the certificate when one was generated.
type surveyCelebrant struct{}

func (surveyCelebrant) Congratulate(course *content.Course, signal api.CompletionSignal) {
	fmt.Fprintln(os.Stdout)
	title(fmt.Sprintf("%s Congratulations! You completed %q", icon.Get(icon.Trophy), course.Title))

	if !signal.CertificateGenerated || signal.CertificateURL == "" {
		fmt.Fprintln(os.Stdout, style.Faint("Your certificate will appear on the course page once it is ready."))
		return
	}

	var view bool
	prompt := &survey.Confirm{
		Message: "Your certificate is ready. View it now?",
		Default: true,
	}
	if err := survey.AskOne(prompt, &view); err != nil || !view {
		return
	}

	if err := open.Start(signal.CertificateURL); err != nil {
		log.Warnf("opening certificate: %v", err)
		fmt.Fprintf(os.Stdout, "Certificate: %s\n", style.Underline(signal.CertificateURL))
	}
}
