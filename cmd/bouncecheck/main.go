package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
	"github.com/emurenMRz/mboxbounce/internal/mailbox"
)

func main() {
	var (
		mode      = flag.String("mode", "classify", "Operation mode: classify, show, rules")
		msgIndex  = flag.Int("msg", 1, "Message number, starting at 1 (for show mode)")
		inputPath = flag.String("path", "", "Input mbox file path, or - for one message on stdin")
		asJSON    = flag.Bool("json", false, "Write JSON instead of text")
	)
	flag.Parse()

	if *mode == "rules" {
		listRules(os.Stdout, *asJSON)
		return
	}

	if *inputPath == "" {
		log.Fatal("Error: -path is required")
	}
	messages, err := readMessages(*inputPath)
	if err != nil {
		log.Fatal("Failed to read messages: ", err)
	}

	switch *mode {
	case "classify":
		classifyMessages(os.Stdout, messages, *asJSON)
	case "show":
		if *msgIndex < 1 || *msgIndex > len(messages) {
			log.Fatal("Error: Invalid message number")
		}
		showMessage(os.Stdout, *msgIndex, messages[*msgIndex-1], *asJSON)
	default:
		log.Fatal("Error: Unknown mode. Use classify, show, or rules")
	}
}

func readMessages(path string) ([][]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return [][]byte{raw}, nil
	}

	src, err := mailbox.OpenMbox(path, true)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	n, err := src.Count(ctx)
	if err != nil {
		return nil, err
	}
	messages := make([][]byte, 0, n)
	for i := 1; i <= n; i++ {
		raw, err := src.Fetch(ctx, i)
		if err != nil {
			return nil, err
		}
		messages = append(messages, raw)
	}
	return messages, nil
}

type classified struct {
	Seq     int           `json:"seq"`
	Kind    string        `json:"kind"`
	Subject string        `json:"subject"`
	Result  bounce.Result `json:"result"`
}

func classifyOne(seq int, raw []byte) (classified, *mailbox.Message) {
	msg := mailbox.ParseMessage(raw)
	res, _ := mailbox.Classify(msg)
	return classified{Seq: seq, Kind: msg.Kind.String(), Subject: msg.Subject, Result: res}, msg
}

func classifyMessages(w io.Writer, messages [][]byte, asJSON bool) {
	var all []classified
	for i, raw := range messages {
		c, _ := classifyOne(i+1, raw)
		all = append(all, c)
	}

	if asJSON {
		writeJSON(w, all)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tKIND\tRULE\tCATEGORY\tTYPE\tREMOVE\tEMAIL")
	matched := 0
	for _, c := range all {
		if c.Result.Matched() {
			matched++
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			c.Seq, c.Kind, c.Result.RuleID, c.Result.Category, c.Result.BounceType, c.Result.Remove, c.Result.Email)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d messages recognized.\n", matched, len(all))
}

func showMessage(w io.Writer, seq int, raw []byte, asJSON bool) {
	c, msg := classifyOne(seq, raw)
	var ds *bounce.DeliveryStatus
	if msg.Kind == mailbox.KindDSN {
		if parsed, ok := bounce.ParseDeliveryStatus(msg.StatusBlock); ok {
			ds = &parsed
		}
	}

	if asJSON {
		writeJSON(w, struct {
			classified
			DeliveryStatus *bounce.DeliveryStatus `json:"delivery_status,omitempty"`
		}{c, ds})
		return
	}

	fmt.Fprintf(w, "Message %d:\n", seq)
	fmt.Fprintf(w, "  Subject:  %s\n", msg.Subject)
	fmt.Fprintf(w, "  From:     %s\n", msg.From)
	fmt.Fprintf(w, "  Type:     %s (%s)\n", msg.MediaType, c.Kind)
	fmt.Fprintf(w, "  Rule:     %s\n", c.Result.RuleID)
	fmt.Fprintf(w, "  Category: %s\n", c.Result.Category)
	fmt.Fprintf(w, "  Bounce:   %s\n", c.Result.BounceType)
	fmt.Fprintf(w, "  Email:    %s\n", c.Result.Email)
	fmt.Fprintf(w, "  Remove:   %t\n", c.Result.Remove)
	if r, ok := bounce.LookupRule(c.Result.RuleID); ok && r.Sample != "" {
		fmt.Fprintf(w, "  Sample:   %s\n", r.Sample)
	}

	if ds != nil {
		fmt.Fprintf(w, "  Reporting-MTA: %s\n", ds.ReportingMTA)
		for _, rs := range ds.Recipients {
			fmt.Fprintf(w, "  Recipient %s: action=%s", rs.Address(), rs.Action)
			if rs.HasStatus {
				fmt.Fprintf(w, " status=%d.%d.%d", rs.Status[0], rs.Status[1], rs.Status[2])
			}
			if rs.DiagnosticCode != "" {
				fmt.Fprintf(w, " diagnostic=%q", rs.DiagnosticCode)
			}
			fmt.Fprintln(w)
		}
	}
}

type ruleInfo struct {
	ID       string          `json:"id"`
	Category bounce.Category `json:"category"`
	Severity bounce.Severity `json:"bounce_type"`
	Remove   bool            `json:"remove"`
	Sample   string          `json:"sample,omitempty"`
}

func listRules(w io.Writer, asJSON bool) {
	var rules []ruleInfo
	for _, r := range bounce.Rules() {
		rules = append(rules, ruleInfo{r.ID, r.Category, r.Severity, r.Remove, r.Sample})
	}

	if asJSON {
		writeJSON(w, rules)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTYPE\tREMOVE\tSAMPLE")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Category, r.Severity, r.Remove, r.Sample)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal("Error writing JSON: ", err)
	}
}
