package classify

// foreignSurnames lists lowercase surnames of foreign authors present in the legacy catalog.
var foreignSurnames = []string{
	// Russian
	"dostojevskij", "tolstoj", "turgenev", "bulgakov", "čechov", "zamjatin",
	"puškin", "gogol", "gorkij", "ostrovskij", "bunin", "jevtušenko",
	"saltykov-ščedrin", "lermontov", "kuprin", "andrejev",
	// German, Austrian
	"goethe", "schiller", "kafka", "mann", "rilke", "hesse", "brecht",
	"schnitzler", "musil", "zweig", "werfel", "grimmelshausen",
	"fontane", "kleist", "tieck", "löns", "storm",
	// French
	"hugo", "proust", "flaubert", "zola", "balzac", "molière", "voltaire",
	"dumas", "maupassant", "rolland", "stendhal", "rostand", "jarry",
	"chevallier", "gide", "colette", "racine", "corneille", "beaumarchais",
	"france", "gautier", "mérimée", "nerval", "verne", "allais",
	"barbey", "rachilde", "baudelaire", "anatole",
	// Italian
	"alighieri", "dante", "petrarca", "boccaccio", "pirandello", "goldoni",
	"leopardi", "carducci", "alfieri", "vergilius", "gozzi", "chiarelli",
	"della porta", "dovizi", "carletti", "ariosto", "tasso", "machiavelli",
	// English, Irish, Welsh
	"dickens", "hardy", "joyce", "woolf", "lawrence", "kipling",
	"thackeray", "austen", "wilde", "swift", "shakespeare", "shelley",
	"keats", "blake", "yeats", "synge", "browning", "meredith", "sterne",
	"fielding", "defoe", "chaucer", "pope", "gay", "radcliffe", "maturin",
	"lewis", "beckford", "james", "carroll", "jerome", "wharton",
	"doyle", "chesterton", "galsworthy", "bennett", "lonsdale", "hilton",
	"stevenson", "lear", "hazlitt", "thomas", "dylan", "scott",
	// American
	"poe", "london", "fitzgerald", "hemingway", "dreiser", "crane",
	"melville", "lardner", "heyward", "bierce", "saki", "burns",
	"twain", "whitman", "faulkner", "o'neill", "stein", "mitchell",
	"cooper", "hawthorne", "sinclair",
	// Polish
	"sienkiewicz", "ossendowski", "choynowski",
	// Scandinavian
	"ibsen", "hamsun", "andersen", "strindberg", "heidenstam", "munthe",
	// Spanish, Portuguese
	"cervantes", "lorca", "vega", "gracián", "unamuno", "valle-inclán",
	"camões", "ruiz", "calderón", "tirso",
	// Classical
	"homéros", "sofokles", "euripidés", "aristofanés",
	"ovidius", "catullus", "tacitus", "caesar",
	"cicero", "seneca", "boëthius", "epiktétos",
	// Other
	"hearn", "la fontaine", "fontaine", "shaw",
}
