package complexity

// Default vocabulary tables. All entries are lower-case; multi-word terms are
// matched before single words so that "quantum entanglement" is not
// double-counted as two separate hits.

// multiWordTermWeight and singleTermWeight are the gazetteer match weights.
const (
	multiWordTermWeight = 2.0
	singleTermWeight    = 1.0
)

// domainTerms maps each technical domain to its gazetteer.
var domainTerms = map[string]struct {
	multi  []string
	single []string
}{
	"physics": {
		multi: []string{
			"quantum entanglement", "general relativity", "special relativity",
			"standard model", "wave function", "thermodynamic equilibrium",
			"higgs boson", "dark matter", "event horizon", "angular momentum",
		},
		single: []string{
			"quantum", "relativity", "entropy", "photon", "boson",
			"superposition", "fermion", "spacetime", "hamiltonian",
		},
	},
	"math": {
		multi: []string{
			"fourier transform", "linear algebra", "differential equation",
			"prime factorization", "bayes theorem", "gradient descent",
			"number theory", "markov chain", "monte carlo",
		},
		single: []string{
			"integral", "derivative", "eigenvalue", "topology", "manifold",
			"theorem", "polynomial", "logarithm", "matrix", "convergence",
		},
	},
	"cs": {
		multi: []string{
			"dynamic programming", "machine learning", "neural network",
			"hash table", "binary tree", "race condition", "garbage collection",
			"distributed system", "load balancing", "message queue",
			"consensus protocol", "cache coherence",
		},
		single: []string{
			"tcp", "udp", "http", "algorithm", "compiler", "mutex",
			"recursion", "database", "kernel", "encryption", "bytecode",
			"heap", "goroutine", "thread",
		},
	},
	"engineering": {
		multi: []string{
			"finite element", "control system", "signal processing",
			"fault tolerance", "stress analysis", "feedback loop",
		},
		single: []string{
			"torque", "impedance", "latency", "throughput", "actuator",
			"resonance", "damping", "voltage",
		},
	},
}

// trivialConcepts are topics answerable from general knowledge in one phrase.
// They only force a trivial classification when the query is short.
var trivialConcepts = []string{
	"color of", "capital of", "opposite of", "plural of", "how do you spell",
	"rhymes with", "day of the week", "how many days", "what time",
}

// Tiered keyword lists. A query matching more or stronger lists resolves to a
// higher base level.
var (
	simpleKeywords = []string{
		"what is", "what are", "who is", "who was", "where is", "when did",
		"when was", "define", "definition of", "list", "name the",
	}

	moderateKeywords = []string{
		"explain", "compare", "difference between", "how does", "how do",
		"why does", "why do", "why is", "summarize", "describe", "convert",
		"pros and cons",
	}

	hardKeywords = []string{
		"analyze", "analyse", "optimize", "optimise", "prove", "derive",
		"evaluate", "debug", "refactor", "implement", "diagnose",
		"step by step", "in depth",
	}

	expertKeywords = []string{
		"architect", "architecture", "scalable", "scalability", "distributed",
		"trade-off", "tradeoff", "trade-offs", "design a system",
		"fault-tolerant", "high availability", "microservice", "consensus",
		"formally verify", "concurrency model",
	}
)

// codeIndicators mark queries that embed code fragments.
var codeIndicators = []string{
	"```", "func ", "def ", "class ", "import ", "#include", "select * from",
	"console.log", "=>", "println", "->", "{}",
}
