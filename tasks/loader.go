package tasks

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/wbcontrol/wbc/config"
	"github.com/wbcontrol/wbc/contact"
	"github.com/wbcontrol/wbc/logging"
	"github.com/wbcontrol/wbc/spatialmath"
	"github.com/wbcontrol/wbc/utils"
)

type taskType string

const (
	taskTransform  taskType = "transform"
	taskAdmittance taskType = "admittance"
	taskCoP        taskType = "cop"
	taskLookAt     taskType = "lookat"
)

// Constructor builds a task from its attributes. dt is the controller period in seconds.
type Constructor func(cfg config.AttributeMap, robots contact.Robots, dt float64, logger logging.Logger) (MetaTask, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

func init() {
	RegisterTaskType(string(taskTransform), loadTransform)
	RegisterTaskType(string(taskAdmittance), loadAdmittance)
	RegisterTaskType(string(taskCoP), loadCoP)
	RegisterTaskType(string(taskLookAt), loadLookAt)
}

// RegisterTaskType makes a task type loadable by Load. It panics if the type is already registered.
func RegisterTaskType(typ string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[typ]; ok {
		panic(errors.Errorf("task type %q already registered", typ))
	}
	registry[typ] = constructor
}

// RegisteredTaskTypes returns the loadable task types in sorted order.
func RegisteredTaskTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for typ := range registry {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Load builds the task described by cfg, dispatching on its "type" attribute.
func Load(cfg config.AttributeMap, robots contact.Robots, dt float64, logger logging.Logger) (MetaTask, error) {
	typ, err := cfg.TryString("type")
	if err != nil {
		return nil, utils.NewConfigValidationError(configPath(cfg), err)
	}
	if _, err := cfg.TryString("name"); err != nil {
		return nil, utils.NewConfigValidationError(configPath(cfg), err)
	}
	if typ == "" {
		return nil, errors.New(`task config has no "type"`)
	}
	registryMu.RLock()
	constructor, ok := registry[typ]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unsupported task type %q, known types are %v", typ, RegisteredTaskTypes())
	}

	task, err := constructor(cfg.Without("completion"), robots, dt, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load %s task", typ)
	}
	return task, nil
}

// LoadCompletionCriteria builds the criteria configured under "completion". It returns nil when
// cfg has none.
func LoadCompletionCriteria(task MetaTask, cfg config.AttributeMap, dt float64) (CompletionCriteria, error) {
	if !cfg.Has("completion") {
		return nil, nil
	}
	completion, err := cfg.Map("completion")
	if err != nil {
		return nil, err
	}
	return task.BuildCompletionCriteria(dt, completion)
}

// configPath names a task config in validation errors. Malformed names fall back to "task".
func configPath(cfg config.AttributeMap) string {
	if name, err := cfg.TryString("name"); err == nil && name != "" {
		return name
	}
	if typ, err := cfg.TryString("type"); err == nil && typ != "" {
		return typ
	}
	return "task"
}

func loadTransform(cfg config.AttributeMap, robots contact.Robots, _ float64, logger logging.Logger) (MetaTask, error) {
	var conf TransformConfig
	if err := cfg.Decode(&conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(configPath(cfg)); err != nil {
		return nil, err
	}

	t, err := NewTransformTask(robots, conf.RobotIndex, conf.Surface, conf.stiffness(), conf.weight(), logger)
	if err != nil {
		return nil, err
	}
	if conf.Name != "" {
		t.SetName(conf.Name)
	}
	if conf.Target != nil {
		t.SetTarget(conf.Target.Pose())
	}
	return t, nil
}

func loadAdmittance(cfg config.AttributeMap, robots contact.Robots, dt float64, logger logging.Logger) (MetaTask, error) {
	var conf AdmittanceConfig
	if err := cfg.Decode(&conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(configPath(cfg)); err != nil {
		return nil, err
	}

	t, err := NewAdmittanceTask(robots, conf.RobotIndex, conf.Surface, conf.dt(dt), conf.stiffness(), conf.weight(), logger)
	if err != nil {
		return nil, err
	}
	conf.apply(&t.admittanceCore)
	if conf.TargetWrench != nil {
		t.SetTargetWrench(spatialmath.NewWrench(conf.TargetWrench.vectors()))
	}
	return t, nil
}

func loadCoP(cfg config.AttributeMap, robots contact.Robots, dt float64, logger logging.Logger) (MetaTask, error) {
	var conf CoPConfig
	if err := cfg.Decode(&conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(configPath(cfg)); err != nil {
		return nil, err
	}

	t, err := NewCoPTask(robots, conf.RobotIndex, conf.Surface, conf.dt(dt), conf.stiffness(), conf.weight(), logger)
	if err != nil {
		return nil, err
	}
	conf.apply(&t.admittanceCore)
	t.SetTargetCoP(conf.targetCoP())
	if len(conf.TargetForce) == 3 {
		t.SetTargetForce(valuesToR3(conf.TargetForce))
	}
	if conf.MinPressure != nil {
		if err := t.SetMinPressure(*conf.MinPressure); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func loadLookAt(cfg config.AttributeMap, robots contact.Robots, _ float64, logger logging.Logger) (MetaTask, error) {
	var conf LookAtConfig
	if err := cfg.Decode(&conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(configPath(cfg)); err != nil {
		return nil, err
	}

	t, err := NewLookAtTask(robots, conf.RobotIndex, conf.Surface, valuesToR3(conf.BodyVector),
		conf.stiffnessOr(DefaultLookAtStiffness), conf.weightOr(DefaultLookAtWeight), logger)
	if err != nil {
		return nil, err
	}
	if conf.Name != "" {
		t.SetName(conf.Name)
	}
	if len(conf.Target) == 3 {
		t.SetTarget(valuesToR3(conf.Target))
	}
	return t, nil
}
