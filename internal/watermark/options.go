package watermark

// Options selects the watermark sections.
type Options struct {
	Author      string
	CurrentTime bool
	CurrentDate bool
	Timezone    bool
	Updated     bool
	Python      bool
	Machine     bool
	GitHash     bool
	GitBranch   bool
}

// Overrides replace individual defaults. Nil fields keep the default.
type Overrides struct {
	Author      *string
	CurrentTime *bool
	CurrentDate *bool
	Timezone    *bool
	Updated     *bool
	Python      *bool
	Machine     *bool
	GitHash     *bool
	GitBranch   *bool
}

// Defaults enables every section. Git sections need a repository.
func Defaults(isRepo bool) Options {
	return Options{
		CurrentTime: true,
		CurrentDate: true,
		Timezone:    true,
		Updated:     true,
		Python:      true,
		Machine:     true,
		GitHash:     isRepo,
		GitBranch:   isRepo,
	}
}

// Apply resolves overrides on top of Defaults. Outside a repository the git
// sections stay off whatever the overrides say.
func Apply(o Overrides, isRepo bool) Options {
	opts := Defaults(isRepo)
	if o.Author != nil {
		opts.Author = *o.Author
	}
	set(&opts.CurrentTime, o.CurrentTime)
	set(&opts.CurrentDate, o.CurrentDate)
	set(&opts.Timezone, o.Timezone)
	set(&opts.Updated, o.Updated)
	set(&opts.Python, o.Python)
	set(&opts.Machine, o.Machine)
	set(&opts.GitHash, o.GitHash)
	set(&opts.GitBranch, o.GitBranch)
	if !isRepo {
		opts.GitHash = false
		opts.GitBranch = false
	}
	return opts
}

func set(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Bool is a convenience for building Overrides.
func Bool(v bool) *bool { return &v }
