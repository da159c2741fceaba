package roles

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML layout
type catalogFile struct {
	// Replace drops the built-in presets instead of extending them
	Replace bool         `yaml:"replace"`
	Roles   []types.Role `yaml:"roles"`
}

var builtin = []types.Role{
	{Name: "AI/ML Engineer", Skills: []string{
		"Python", "PyTorch", "TensorFlow", "Machine Learning", "Deep Learning",
		"MLOps", "Scikit-Learn", "NLP", "Computer Vision", "Reinforcement Learning",
		"Hugging Face", "Data Engineering", "Feature Engineering", "AutoML",
	}},
	{Name: "Frontend Engineer", Skills: []string{
		"React", "Vue", "Angular", "HTML5", "CSS3", "JavaScript", "TypeScript",
		"Next.js", "Svelte", "Bootstrap", "Tailwind CSS", "GraphQL", "Redux",
		"WebAssembly", "Three.js", "Performance Optimization",
	}},
	{Name: "Backend Engineer", Skills: []string{
		"Python", "Java", "Node.js", "REST APIs", "Cloud services", "Kubernetes",
		"Docker", "GraphQL", "Microservices", "gRPC", "Spring Boot", "Flask",
		"FastAPI", "SQL & NoSQL Databases", "Redis", "RabbitMQ", "CI/CD",
	}},
	{Name: "Data Engineer", Skills: []string{
		"Python", "SQL", "ETL Pipelines", "Apache Spark", "Airflow", "Kafka",
		"Data Warehousing", "AWS/GCP/Azure", "Data Lakes", "BigQuery",
		"Snowflake", "DBT", "Distributed Systems", "Data Modeling", "Scala",
	}},
	{Name: "Data Scientist", Skills: []string{
		"Python", "R", "SQL", "Pandas", "NumPy", "Scikit-Learn", "Matplotlib",
		"Seaborn", "Statistics", "Hypothesis Testing", "Machine Learning",
		"Deep Learning", "Data Visualization", "Feature Engineering",
		"EDA", "Storytelling with Data", "A/B Testing", "BigQuery", "Jupyter Notebook",
	}},
	{Name: "DevOps Engineer", Skills: []string{
		"Linux", "Docker", "Kubernetes", "AWS/GCP/Azure", "CI/CD", "Terraform",
		"Ansible", "Jenkins", "Git", "Monitoring (Prometheus/Grafana)",
		"Scripting (Bash/Python)", "Networking Basics", "System Design",
		"Incident Management", "Logging & Alerting",
	}},
	{Name: "Full Stack Developer", Skills: []string{
		"HTML5", "CSS3", "JavaScript", "TypeScript", "React", "Node.js",
		"Express.js", "MongoDB", "SQL", "Next.js", "Tailwind CSS", "Redux",
		"REST APIs", "GraphQL", "Authentication", "Testing", "Docker", "CI/CD",
	}},
	{Name: "Product Manager", Skills: []string{
		"Product Lifecycle", "Agile Methodology", "JIRA", "User Research",
		"Wireframing", "A/B Testing", "Market Analysis", "KPIs & Metrics",
		"Roadmapping", "Stakeholder Communication", "Figma", "Data-driven Decision Making",
		"Basic SQL", "Competitor Analysis", "Storytelling", "Prioritization Frameworks",
	}},
}

// Builtin returns a copy of the preset roles
func Builtin() []types.Role {
	return cloneRoles(builtin)
}

// Catalog is a concurrency-safe set of roles, optionally backed by a YAML file
type Catalog struct {
	mu     sync.RWMutex
	roles  []types.Role
	file   string
	logger *errors.Logger
}

// NewCatalog creates a catalog with the built-in presets, extended or replaced
// by the roles in file when file is not empty
func NewCatalog(file string, logger *errors.Logger) (*Catalog, error) {
	c := &Catalog{roles: Builtin(), file: file, logger: logger}
	if file == "" {
		return c, nil
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// File returns the backing file path, "" for the built-in catalog
func (c *Catalog) File() string {
	return c.file
}

// Reload re-reads the backing file. On error the current roles are kept.
func (c *Catalog) Reload() error {
	if c.file == "" {
		return nil
	}

	data, err := os.ReadFile(c.file)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read role catalog", err).
			WithContext("file", c.file)
	}

	roles, err := parseCatalog(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.roles = roles
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("Role catalog loaded", "file", c.file, "roles", len(roles))
	}
	return nil
}

func parseCatalog(data []byte) ([]types.Role, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid role catalog", err)
	}

	var roles []types.Role
	if !f.Replace {
		roles = Builtin()
	}
	for _, r := range f.Roles {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "role without a name in catalog", nil)
		}
		skills := normalize(r.Skills)
		if len(skills) == 0 {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("role %q has no skills", name), nil)
		}

		role := types.Role{Name: name, Skills: skills}
		if i := indexOf(roles, name); i >= 0 {
			roles[i] = role
		} else {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "role catalog is empty", nil)
	}
	return roles, nil
}

// Names lists role names in catalog order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.roles))
	for i, r := range c.roles {
		names[i] = r.Name
	}
	return names
}

// List returns a copy of every role
func (c *Catalog) List() []types.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneRoles(c.roles)
}

// Skills returns the skills of the named role, matched case-insensitively
func (c *Catalog) Skills(name string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := indexOf(c.roles, strings.TrimSpace(name))
	if i < 0 {
		return nil, false
	}
	return slices.Clone(c.roles[i].Skills), true
}

// Resolve returns the skills of the named role or a validation error
func (c *Catalog) Resolve(name string) ([]string, error) {
	skills, ok := c.Skills(name)
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeUnknownRole,
			fmt.Sprintf("unknown role %q", name), nil).WithContext("available", c.Names())
	}
	return skills, nil
}

func indexOf(roles []types.Role, name string) int {
	return slices.IndexFunc(roles, func(r types.Role) bool {
		return strings.EqualFold(r.Name, name)
	})
}

func normalize(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func cloneRoles(roles []types.Role) []types.Role {
	out := make([]types.Role, len(roles))
	for i, r := range roles {
		out[i] = types.Role{Name: r.Name, Skills: slices.Clone(r.Skills)}
	}
	return out
}
