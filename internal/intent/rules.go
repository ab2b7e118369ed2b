package intent

import "regexp"

// rule is one entry in the deterministic classification table. Rules are
// evaluated in order, most specific first; the first match for a given Kind
// wins. Named capture groups become intent parameters.
type rule struct {
	kind       Kind
	re         *regexp.Regexp
	confidence float64
	// bind post-processes extracted params with session context, e.g. to
	// resolve location aliases. May be nil.
	bind func(params map[string]string, ctx Context)
}

func resolveLocation(key string) func(map[string]string, Context) {
	return func(params map[string]string, ctx Context) {
		if v, ok := params[key]; ok && v != "" && ctx != nil {
			params[key] = ctx.ResolveLocation(v)
		}
	}
}

// ruleTable is ordered from most specific (multi-word phrases with
// parameters) to least specific (bare verbs). Do not reorder casually:
// first match per kind wins.
var ruleTable = []rule{
	// Safety net phrasing first: "undo" must never fall through to a
	// destructive interpretation.
	{kind: KindUndoTimeline, re: regexp.MustCompile(`\bundo timeline\b|\bshow undo\b`), confidence: 0.95},
	{kind: KindUndoSince, re: regexp.MustCompile(`\bundo\b.*\blast (?P<n>\d+) (?P<unit>minutes?|hours?)\b`), confidence: 0.95},
	{kind: KindUndoSince, re: regexp.MustCompile(`\bundo\b.*\blast (?P<unit>minute|hour)\b`), confidence: 0.9},
	{kind: KindUndoLast, re: regexp.MustCompile(`^undo( last( action)?)?$`), confidence: 0.95},

	// Context memory
	{kind: KindWhatDoing, re: regexp.MustCompile(`\bwhat was i doing\b(?: (?P<when>.+))?`), confidence: 0.95},
	{kind: KindContinueWork, re: regexp.MustCompile(`\bcontinue (?:where i left off|session|work)\b`), confidence: 0.95},
	{kind: KindFindProject, re: regexp.MustCompile(`\bfiles? related to (?P<project>\S+)`), confidence: 0.95},

	// Two-operand file operations
	{kind: KindMoveFile, re: regexp.MustCompile(`\bmove (?:file |folder )?(?P<source>\S+) to (?P<destination>\S+)`), confidence: 0.95, bind: resolveLocation("destination")},
	{kind: KindRenameFile, re: regexp.MustCompile(`\brename (?:file |folder )?(?P<source>\S+) (?:to |as )(?P<destination>\S+)`), confidence: 0.95},
	{kind: KindCopyFile, re: regexp.MustCompile(`\bcopy (?:file )?(?P<source>\S+) to (?P<destination>\S+)`), confidence: 0.95, bind: resolveLocation("destination")},

	// Explicit create/delete with target word
	{kind: KindCreateFile, re: regexp.MustCompile(`\bcreate (?:a |new )?file (?:called |named )?(?P<name>\S+)(?: (?:in|at) (?P<location>\S+))?`), confidence: 0.95, bind: resolveLocation("location")},
	{kind: KindCreateFolder, re: regexp.MustCompile(`\bcreate (?:a |new )?(?:folder|directory) (?:called |named )?(?P<name>\S+)(?: (?:in|at) (?P<location>\S+))?`), confidence: 0.95, bind: resolveLocation("location")},
	{kind: KindDeleteFile, re: regexp.MustCompile(`\bdelete (?:the )?file (?P<name>\S+)`), confidence: 0.95},
	{kind: KindDeleteFolder, re: regexp.MustCompile(`\bdelete (?:the )?(?:folder|directory) (?P<name>\S+)`), confidence: 0.95},

	// Bare create/delete: the extension decides file vs folder. Without an
	// extension both destructive readings stay close so the classifier asks
	// instead of guessing (see epsilon check).
	{kind: KindCreateFile, re: regexp.MustCompile(`\bcreate (?P<name>\S+\.\S+)$`), confidence: 0.9},
	{kind: KindCreateFolder, re: regexp.MustCompile(`\bcreate (?P<name>\S+)$`), confidence: 0.78},
	{kind: KindDeleteFile, re: regexp.MustCompile(`\bdelete (?P<name>\S+\.\S+)$`), confidence: 0.9},
	{kind: KindDeleteFolder, re: regexp.MustCompile(`\bdelete (?P<name>\S+)$`), confidence: 0.7},
	{kind: KindDeleteFile, re: regexp.MustCompile(`\bdelete (?P<name>\S+)$`), confidence: 0.65},

	// Archive operations
	// Space-anchored so "report.zip everywhere" is not read as a zip verb.
	{kind: KindCompress, re: regexp.MustCompile(`(?:^| )(?:compress|zip|archive) (?:folder )?(?P<name>\S+)`), confidence: 0.9},
	{kind: KindExtract, re: regexp.MustCompile(`(?:^| )(?:extract|unzip) (?P<name>\S+)`), confidence: 0.9},

	// Navigation
	{kind: KindWhere, re: regexp.MustCompile(`\bwhere am i\b|\bcurrent location\b|^where$`), confidence: 0.95},
	{kind: KindBack, re: regexp.MustCompile(`^(?:go )?back$`), confidence: 0.95},
	{kind: KindNavigate, re: regexp.MustCompile(`\b(?:go to|navigate to|cd) (?P<location>\S+)`), confidence: 0.95, bind: resolveLocation("location")},

	// Listing
	{kind: KindListFiles, re: regexp.MustCompile(`\b(?:list|show) (?:the |my )?files\b`), confidence: 0.9},
	{kind: KindListFolders, re: regexp.MustCompile(`\b(?:list|show) (?:the |my )?(?:folders|directories)\b`), confidence: 0.9},
	{kind: KindListAll, re: regexp.MustCompile(`\blist (?:all|everything)\b|^list$`), confidence: 0.85},

	// Search
	{kind: KindSearch, re: regexp.MustCompile(`\b(?:search|find|look) (?:for )?(?P<query>\S+)(?P<recursive> everywhere| recursive)?`), confidence: 0.8},

	// System operations
	{kind: KindScreenshot, re: regexp.MustCompile(`\btake (?:a )?screenshot(?: (?P<name>\S+))?|^screenshot$`), confidence: 0.95},
	{kind: KindKillProcess, re: regexp.MustCompile(`\b(?:kill|terminate|stop) (?:the )?process (?P<process>\S+)`), confidence: 0.95},
	{kind: KindShutdown, re: regexp.MustCompile(`\bshutdown\b(?: in (?P<delay>\d+))?`), confidence: 0.85},
	{kind: KindRestart, re: regexp.MustCompile(`\b(?:restart|reboot)\b(?: in (?P<delay>\d+))?`), confidence: 0.85},
	{kind: KindCancelShutdown, re: regexp.MustCompile(`\bcancel (?:shutdown|restart)\b`), confidence: 0.97},
	{kind: KindCheckStorage, re: regexp.MustCompile(`\bcheck (?:storage|disk|space)\b`), confidence: 0.9},
	{kind: KindSystemInfo, re: regexp.MustCompile(`\bsystem info\b|\bcheck system\b`), confidence: 0.9},

	// Open doubles as navigation when the target is a known location; that
	// resolution happens at bind time so "open documents" navigates while
	// "open firefox" launches.
	{kind: KindNavigate, re: regexp.MustCompile(`\b(?:open|enter) (?P<location>\S+)`), confidence: 0.8, bind: resolveLocation("location")},
	{kind: KindOpenApp, re: regexp.MustCompile(`\b(?:open|launch|start) (?P<app>\S+)`), confidence: 0.6},

	// Meta
	{kind: KindCapabilities, re: regexp.MustCompile(`\bwhat can you do\b|\bcapabilities\b|^help$`), confidence: 0.95},
}

// Vocabulary returns every keyword the rule table relies on. The normalizer
// corrects misspellings toward this set.
func Vocabulary() []string {
	return []string{
		"create", "make", "new", "add", "delete", "remove", "erase",
		"list", "show", "display", "view", "go", "to", "open", "enter",
		"navigate", "cd", "back", "return", "move", "transfer", "rename",
		"copy", "search", "find", "look", "where", "current", "location",
		"check", "status", "take", "capture", "kill", "terminate", "stop",
		"shutdown", "restart", "reboot", "cancel", "launch", "start",
		"close", "quit", "compress", "zip", "archive", "extract", "unzip",
		"file", "files", "folder", "folders", "directory", "directories",
		"screenshot", "process", "storage", "disk", "space", "system",
		"info", "undo", "last", "action", "timeline", "minutes", "hours",
		"continue", "session", "work", "related", "project", "everything",
		"everywhere", "recursive", "called", "named", "help",
		"capabilities", "then", "and",
		// Location aliases, so "documnets" corrects to "documents".
		"home", "desktop", "documents", "downloads", "pictures", "music",
		"videos", "root", "here",
	}
}
