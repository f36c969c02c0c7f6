package schema

// AgentSettings describe who the agent is.
type AgentSettings struct {
	Name          string
	Creator       string
	Persona       string
	Directive     string
	MemoryContext string
}

func NewAgentSettings(name, creator, persona, directive, memoryContext string) AgentSettings {
	return AgentSettings{
		Name:          name,
		Creator:       creator,
		Persona:       persona,
		Directive:     directive,
		MemoryContext: memoryContext,
	}
}
