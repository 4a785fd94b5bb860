package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/crewkit/crewd/internal/agent"
	agentrepo "github.com/crewkit/crewd/internal/agent/repositoryimpl"
	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/executor"
	"github.com/crewkit/crewd/internal/memory"
	memoryrepo "github.com/crewkit/crewd/internal/memory/repositoryimpl"
	"github.com/crewkit/crewd/internal/provider"
	"github.com/crewkit/crewd/internal/task"
	taskrepo "github.com/crewkit/crewd/internal/task/repositoryimpl"
	"github.com/crewkit/crewd/internal/workflow"
	workflowrepo "github.com/crewkit/crewd/internal/workflow/repositoryimpl"
	"github.com/crewkit/crewd/pkg/color"
	"github.com/crewkit/crewd/pkg/storage"
)

var (
	app     = kingpin.New("crewd", "Workflow and task orchestration for an AI agent crew")
	dataDir = app.Flag("data-dir", "Local storage directory").Default(".crewd/data").String()

	setupCmd = app.Command("setup", "Provision local storage and seed the default agent roster")
	watchCmd = app.Command("watch", "Watch storage and reprint the task list as records change")

	// Agent commands
	agentCmd      = app.Command("agent", "Agent roster commands")
	agentListCmd  = agentCmd.Command("list", "List the agent roster")
	agentMatchCmd = agentCmd.Command("match", "Find the best-fit agent for a skill set")
	agentSkills   = agentMatchCmd.Arg("skills", "Required skills").Required().Strings()

	// Task commands
	taskCmd         = app.Command("task", "Task commands")
	taskCreateCmd   = taskCmd.Command("create", "Create a task")
	taskTitle       = taskCreateCmd.Arg("title", "Task title").Required().String()
	taskType        = taskCreateCmd.Flag("type", "Task type").Default("research").String()
	taskWorkflow    = taskCreateCmd.Flag("workflow", "Owning workflow id").String()
	taskAssignee    = taskCreateCmd.Flag("assignee", "Assignee agent id").String()
	taskPriority    = taskCreateCmd.Flag("priority", "Priority (low|medium|high)").Default("medium").String()
	taskDeps        = taskCreateCmd.Flag("dep", "Dependency task id (repeatable)").Strings()
	taskSkills      = taskCreateCmd.Flag("skill", "Required skill (repeatable)").Strings()
	taskAutoAssign  = taskCreateCmd.Flag("auto-assign", "Assign the best-fit agent by required skills").Bool()
	taskInput       = taskCreateCmd.Flag("input", "Input payload as JSON").String()
	taskListCmd     = taskCmd.Command("list", "List tasks")
	taskListWF      = taskListCmd.Flag("workflow", "Filter by workflow id").String()
	taskListAgent   = taskListCmd.Flag("assignee", "Filter by assignee").String()
	taskListStatus  = taskListCmd.Flag("status", "Filter by status").String()
	taskReadyCmd    = taskCmd.Command("ready", "List pending tasks whose dependencies are completed")
	taskShowCmd     = taskCmd.Command("show", "Show task details")
	taskShowID      = taskShowCmd.Arg("id", "Task ID").Required().String()
	taskStatusCmd   = taskCmd.Command("status", "Update task status")
	taskStatusID    = taskStatusCmd.Arg("id", "Task ID").Required().String()
	taskStatusValue = taskStatusCmd.Arg("status", "New status").Required().String()
	taskExecCmd     = taskCmd.Command("execute", "Execute a task")
	taskExecID      = taskExecCmd.Arg("id", "Task ID").Required().String()
	taskExecAgent   = taskExecCmd.Flag("agent", "Executing agent id").String()
	taskHandoffCmd  = taskCmd.Command("handoff", "Hand a task off to another agent")
	taskHandoffID   = taskHandoffCmd.Arg("id", "Task ID").Required().String()
	taskHandoffTo   = taskHandoffCmd.Arg("to", "Target agent id").Required().String()
	taskHandoffWhy  = taskHandoffCmd.Flag("reason", "Handoff reason").String()

	// Workflow commands
	wfCmd        = app.Command("workflow", "Workflow commands")
	wfCreateCmd  = wfCmd.Command("create", "Create a workflow")
	wfName       = wfCreateCmd.Arg("name", "Workflow name").Required().String()
	wfDesc       = wfCreateCmd.Flag("description", "Workflow description").String()
	wfApproval   = wfCreateCmd.Flag("requires-approval", "Gate activation on admin approval").Bool()
	wfListCmd    = wfCmd.Command("list", "List workflows")
	wfShowCmd    = wfCmd.Command("show", "Show a workflow with its tasks and progress")
	wfShowID     = wfShowCmd.Arg("id", "Workflow ID").Required().String()
	wfSubmitCmd  = wfCmd.Command("submit", "Submit a workflow for approval")
	wfSubmitID   = wfSubmitCmd.Arg("id", "Workflow ID").Required().String()
	wfReviewCmd  = wfCmd.Command("review", "Approve or reject a submitted workflow")
	wfReviewID   = wfReviewCmd.Arg("id", "Workflow ID").Required().String()
	wfApprove    = wfReviewCmd.Flag("approve", "Approve instead of reject").Bool()
	wfNotes      = wfReviewCmd.Flag("notes", "Admin notes").String()
	wfStartCmd   = wfCmd.Command("start", "Activate a workflow")
	wfStartID    = wfStartCmd.Arg("id", "Workflow ID").Required().String()
	wfPauseCmd   = wfCmd.Command("pause", "Pause an active workflow")
	wfPauseID    = wfPauseCmd.Arg("id", "Workflow ID").Required().String()
	wfResumeCmd  = wfCmd.Command("resume", "Resume a paused workflow")
	wfResumeID   = wfResumeCmd.Arg("id", "Workflow ID").Required().String()
	wfDeleteCmd  = wfCmd.Command("delete", "Delete a workflow and its tasks")
	wfDeleteID   = wfDeleteCmd.Arg("id", "Workflow ID").Required().String()
)

type cli struct {
	store     *storage.LocalStorage
	agents    *agent.Service
	tasks     *task.Service
	workflows *workflow.Service
}

func newCLI(dataDir string) (*cli, error) {
	store, err := storage.NewLocalStorage(dataDir)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(store)
	workflows := workflow.NewService(workflowrepo.NewYAMLRepository(store), taskRepo, bus)
	registry := executor.NewRegistry(executor.NewEchoExecutor())
	registry.Register(task.TypeValidation, executor.NewValidationExecutor())
	recorder := memory.NewRecorder(memoryrepo.NewYAMLRepository(store))
	tasks := task.NewService(taskRepo, workflows, bus, registry, recorder)
	agents := agent.NewService(agentrepo.NewYAMLRepository(store))

	return &cli{store: store, agents: agents, tasks: tasks, workflows: workflows}, nil
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c, err := newCLI(*dataDir)
	if err != nil {
		fatal(err)
	}
	ctx := context.Background()

	switch command {
	case setupCmd.FullCommand():
		err = c.setup(ctx)
	case watchCmd.FullCommand():
		err = c.watch()
	case agentListCmd.FullCommand():
		err = c.agentList(ctx)
	case agentMatchCmd.FullCommand():
		err = c.agentMatch(ctx, *agentSkills)
	case taskCreateCmd.FullCommand():
		err = c.taskCreate(ctx)
	case taskListCmd.FullCommand():
		err = c.taskList(ctx, task.ListFilter{
			WorkflowID: *taskListWF,
			AssigneeID: *taskListAgent,
			Status:     task.Status(*taskListStatus),
		})
	case taskReadyCmd.FullCommand():
		err = c.taskReady(ctx)
	case taskShowCmd.FullCommand():
		err = c.taskShow(ctx, *taskShowID)
	case taskStatusCmd.FullCommand():
		_, err = c.tasks.UpdateTaskStatus(ctx, *taskStatusID, task.Status(*taskStatusValue), nil)
	case taskExecCmd.FullCommand():
		err = c.taskExecute(ctx, *taskExecID, *taskExecAgent)
	case taskHandoffCmd.FullCommand():
		err = c.taskHandoff(ctx, *taskHandoffID, *taskHandoffTo, *taskHandoffWhy)
	case wfCreateCmd.FullCommand():
		err = c.workflowCreate(ctx)
	case wfListCmd.FullCommand():
		err = c.workflowList(ctx)
	case wfShowCmd.FullCommand():
		err = c.workflowShow(ctx, *wfShowID)
	case wfSubmitCmd.FullCommand():
		err = c.workflowShift(ctx, *wfSubmitID, func(id string) (*workflow.Workflow, error) {
			return c.workflows.SubmitForApproval(ctx, id, "")
		})
	case wfReviewCmd.FullCommand():
		err = c.workflowShift(ctx, *wfReviewID, func(id string) (*workflow.Workflow, error) {
			return c.workflows.Review(ctx, id, *wfApprove, *wfNotes)
		})
	case wfStartCmd.FullCommand():
		err = c.workflowShift(ctx, *wfStartID, func(id string) (*workflow.Workflow, error) {
			return c.workflows.Start(ctx, id)
		})
	case wfPauseCmd.FullCommand():
		err = c.workflowShift(ctx, *wfPauseID, func(id string) (*workflow.Workflow, error) {
			return c.workflows.Pause(ctx, id)
		})
	case wfResumeCmd.FullCommand():
		err = c.workflowShift(ctx, *wfResumeID, func(id string) (*workflow.Workflow, error) {
			return c.workflows.Resume(ctx, id)
		})
	case wfDeleteCmd.FullCommand():
		err = c.workflows.Delete(ctx, *wfDeleteID)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func (c *cli) setup(ctx context.Context) error {
	if err := c.store.Provision(ctx); err != nil {
		return err
	}
	created, err := c.agents.SeedRoster(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("storage provisioned at %s, %d agents seeded\n", c.store.BasePath(), created)
	return nil
}

func (c *cli) watch() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := storage.NewWatcher(c.store)
	if err != nil {
		return err
	}
	go w.Start(ctx)

	fmt.Printf("watching %s\n", c.store.BasePath())
	p := provider.New(c.agents, c.tasks, c.store)
	p.AutoRefresh(ctx, w.C, func(st provider.State) {
		if st.Err != "" {
			fmt.Fprintf(os.Stderr, "refresh failed: %s\n", st.Err)
			return
		}
		printTaskTable(st.Tasks)
	})
	return nil
}

func (c *cli) agentList(ctx context.Context) error {
	agents, err := c.agents.List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s  %s  %s\n", color.Header("ID"), color.Header("NAME"), color.Header("ROLE"), color.Header("SKILLS"))
	for _, a := range agents {
		fmt.Printf("%s  %s  %s  %s\n", color.Agent(a.ID), a.Name, a.Role, strings.Join(a.Skills, ","))
	}
	return nil
}

func (c *cli) agentMatch(ctx context.Context, skills []string) error {
	best, err := c.agents.Match(ctx, skills)
	if err != nil {
		return err
	}
	if best == nil {
		fmt.Println("no matching agent")
		return nil
	}
	fmt.Printf("%s (%s, skills: %s)\n", color.Agent(best.ID), best.Name, strings.Join(best.Skills, ","))
	return nil
}

func (c *cli) taskCreate(ctx context.Context) error {
	var input map[string]any
	if *taskInput != "" {
		if err := json.Unmarshal([]byte(*taskInput), &input); err != nil {
			return fmt.Errorf("invalid --input JSON: %w", err)
		}
	}

	assignee := *taskAssignee
	if assignee == "" && *taskAutoAssign {
		best, err := c.agents.Match(ctx, *taskSkills)
		if err != nil {
			return err
		}
		if best != nil {
			assignee = best.ID
			fmt.Printf("auto-assigned to %s\n", color.Agent(best.ID))
		}
	}

	t, err := c.tasks.CreateTask(ctx, &task.CreateTaskRequest{
		Title:          *taskTitle,
		Type:           task.Type(*taskType),
		WorkflowID:     *taskWorkflow,
		AssigneeID:     assignee,
		Dependencies:   *taskDeps,
		InputData:      input,
		Priority:       task.Priority(*taskPriority),
		SkillsRequired: *taskSkills,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created task %s (%s)\n", t.ID, color.Status(string(t.Status)))
	return nil
}

func (c *cli) taskList(ctx context.Context, filter task.ListFilter) error {
	tasks, err := c.tasks.ListTasks(ctx, filter)
	if err != nil {
		return err
	}
	printTaskTable(tasks)
	return nil
}

func (c *cli) taskReady(ctx context.Context) error {
	tasks, err := c.tasks.ReadyTasks(ctx)
	if err != nil {
		return err
	}
	printTaskTable(tasks)
	return nil
}

func printTaskTable(tasks []*task.Task) {
	fmt.Printf("%s  %s  %s  %s  %s\n",
		color.Header("ID"), color.Header("STATUS"), color.Header("PRIORITY"), color.Header("ASSIGNEE"), color.Header("TITLE"))
	for _, t := range tasks {
		assignee := "-"
		if t.AssigneeID != "" {
			assignee = color.Agent(t.AssigneeID)
		}
		fmt.Printf("%s  %s  %s  %s  %s\n", t.ID, color.Status(string(t.Status)), t.Priority, assignee, t.Title)
	}
}

func (c *cli) taskShow(ctx context.Context, id string) error {
	t, err := c.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (c *cli) taskExecute(ctx context.Context, id, agentID string) error {
	res, err := c.tasks.Execute(ctx, id, agentID)
	if err != nil {
		return err
	}
	if res.Success {
		fmt.Printf("%s: %v\n", color.Status("completed"), res.Result)
	} else {
		fmt.Printf("%s: %v\n", color.Status("failed"), res.Result)
	}
	return nil
}

func (c *cli) taskHandoff(ctx context.Context, id, to, reason string) error {
	t, err := c.tasks.Handoff(ctx, id, "", to, reason)
	if err != nil {
		return err
	}
	fmt.Printf("task %s handed off to %s\n", t.ID, color.Agent(to))
	return nil
}

func (c *cli) workflowCreate(ctx context.Context) error {
	w, err := c.workflows.Create(ctx, &workflow.CreateWorkflowRequest{
		Name:             *wfName,
		Description:      *wfDesc,
		RequiresApproval: *wfApproval,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created workflow %s (%s)\n", w.ID, color.Status(string(w.Status)))
	return nil
}

func (c *cli) workflowList(ctx context.Context) error {
	wfs, err := c.workflows.List(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s  %s\n", color.Header("ID"), color.Header("STATUS"), color.Header("NAME"))
	for _, w := range wfs {
		fmt.Printf("%s  %s  %s\n", w.ID, color.Status(string(w.Status)), w.Name)
	}
	return nil
}

func (c *cli) workflowShow(ctx context.Context, id string) error {
	w, err := c.workflows.Get(ctx, id)
	if err != nil {
		return err
	}
	progress, err := c.workflows.Progress(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s  %d%%  %s\n", w.ID, color.Status(string(w.Status)), progress, w.Name)
	tasks, err := c.tasks.ListTasks(ctx, task.ListFilter{WorkflowID: id})
	if err != nil {
		return err
	}
	printTaskTable(tasks)
	return nil
}

func (c *cli) workflowShift(ctx context.Context, id string, op func(id string) (*workflow.Workflow, error)) error {
	w, err := op(id)
	if err != nil {
		return err
	}
	fmt.Printf("workflow %s is now %s\n", w.ID, color.Status(string(w.Status)))
	return nil
}
