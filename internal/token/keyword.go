package token

// Keyword identifies a specific SQL keyword recognized by the scanner. The
// set below covers the PostgreSQL/CockroachDB reserved keywords plus the
// common non-reserved keywords exercised by the detector and by the
// end-to-end scenarios in the test suite. It is not exhaustive of the
// CockroachDB grammar — an identifier that isn't in this table simply scans
// as KindIdentifier, which is always safe for matching and detection
// purposes.
type Keyword int

const (
	KeywordUnknown Keyword = iota

	// Reserved keywords (PostgreSQL standard reserved subset).
	KeywordAll
	KeywordAnalyse
	KeywordAnalyze
	KeywordAnd
	KeywordAny
	KeywordArray
	KeywordAs
	KeywordAsc
	KeywordAsymmetric
	KeywordBoth
	KeywordCase
	KeywordCast
	KeywordCheck
	KeywordCollate
	KeywordColumn
	KeywordConstraint
	KeywordCreate
	KeywordCurrentCatalog
	KeywordCurrentDate
	KeywordCurrentRole
	KeywordCurrentTime
	KeywordCurrentTimestamp
	KeywordCurrentUser
	KeywordDefault
	KeywordDeferrable
	KeywordDesc
	KeywordDistinct
	KeywordDo
	KeywordElse
	KeywordEnd
	KeywordExcept
	KeywordFalse
	KeywordFetch
	KeywordFor
	KeywordForeign
	KeywordFrom
	KeywordGrant
	KeywordGroup
	KeywordHaving
	KeywordIn
	KeywordInitially
	KeywordIntersect
	KeywordInto
	KeywordLateral
	KeywordLeading
	KeywordLimit
	KeywordLocaltime
	KeywordLocaltimestamp
	KeywordNot
	KeywordNull
	KeywordOffset
	KeywordOn
	KeywordOnly
	KeywordOr
	KeywordOrder
	KeywordPlacing
	KeywordPrimary
	KeywordReferences
	KeywordReturning
	KeywordSelect
	KeywordSessionUser
	KeywordSome
	KeywordSymmetric
	KeywordTable
	KeywordThen
	KeywordTo
	KeywordTrailing
	KeywordTrue
	KeywordUnion
	KeywordUnique
	KeywordUser
	KeywordUsing
	KeywordVariadic
	KeywordWhen
	KeywordWhere
	KeywordWindow
	KeywordWith

	// Non-reserved keywords needed by the detector and by common statements.
	KeywordBegin
	KeywordCommit
	KeywordRollback
	KeywordStart
	KeywordTransaction
	KeywordSavepoint
	KeywordRelease
	KeywordInsert
	KeywordUpdate
	KeywordDelete
	KeywordValues
	KeywordSet
	KeywordDrop
	KeywordAlter
	KeywordTruncate
	KeywordExplain
	KeywordPrepare
	KeywordExecute
	KeywordDeallocate
	KeywordDeclare
	KeywordCursor
	KeywordCopy
	KeywordIf
	KeywordExists
	KeywordIndex
	KeywordView
	KeywordSchema
	KeywordDatabase
	KeywordSequence
	KeywordFunction
	KeywordTrigger
	KeywordExtension
	KeywordType
	KeywordDomain
	KeywordLike
	KeywordIlike
	KeywordBetween
	KeywordIs
	KeywordJoin
	KeywordInner
	KeywordOuter
	KeywordLeft
	KeywordRight
	KeywordFull
	KeywordBy
	KeywordConflict
	KeywordNothing
	KeywordRecursive
	KeywordOver
	KeywordPartition
	KeywordFilter
	KeywordFirst
	KeywordLast
	KeywordNulls
	KeywordNext
	KeywordCascade
	KeywordRestrict
	KeywordRevoke
	KeywordUnknownKw
)

var keywords = map[string]Keyword{
	"ALL":               KeywordAll,
	"ANALYSE":           KeywordAnalyse,
	"ANALYZE":           KeywordAnalyze,
	"AND":               KeywordAnd,
	"ANY":               KeywordAny,
	"ARRAY":             KeywordArray,
	"AS":                KeywordAs,
	"ASC":               KeywordAsc,
	"ASYMMETRIC":        KeywordAsymmetric,
	"BOTH":              KeywordBoth,
	"CASE":              KeywordCase,
	"CAST":              KeywordCast,
	"CHECK":             KeywordCheck,
	"COLLATE":           KeywordCollate,
	"COLUMN":            KeywordColumn,
	"CONSTRAINT":        KeywordConstraint,
	"CREATE":            KeywordCreate,
	"CURRENT_CATALOG":   KeywordCurrentCatalog,
	"CURRENT_DATE":      KeywordCurrentDate,
	"CURRENT_ROLE":      KeywordCurrentRole,
	"CURRENT_TIME":      KeywordCurrentTime,
	"CURRENT_TIMESTAMP": KeywordCurrentTimestamp,
	"CURRENT_USER":      KeywordCurrentUser,
	"DEFAULT":           KeywordDefault,
	"DEFERRABLE":        KeywordDeferrable,
	"DESC":              KeywordDesc,
	"DISTINCT":          KeywordDistinct,
	"DO":                KeywordDo,
	"ELSE":              KeywordElse,
	"END":               KeywordEnd,
	"EXCEPT":            KeywordExcept,
	"FALSE":             KeywordFalse,
	"FETCH":             KeywordFetch,
	"FOR":               KeywordFor,
	"FOREIGN":           KeywordForeign,
	"FROM":              KeywordFrom,
	"GRANT":             KeywordGrant,
	"GROUP":             KeywordGroup,
	"HAVING":            KeywordHaving,
	"IN":                KeywordIn,
	"INITIALLY":         KeywordInitially,
	"INTERSECT":         KeywordIntersect,
	"INTO":              KeywordInto,
	"LATERAL":           KeywordLateral,
	"LEADING":           KeywordLeading,
	"LIMIT":             KeywordLimit,
	"LOCALTIME":         KeywordLocaltime,
	"LOCALTIMESTAMP":    KeywordLocaltimestamp,
	"NOT":               KeywordNot,
	"NULL":              KeywordNull,
	"OFFSET":            KeywordOffset,
	"ON":                KeywordOn,
	"ONLY":              KeywordOnly,
	"OR":                KeywordOr,
	"ORDER":             KeywordOrder,
	"PLACING":           KeywordPlacing,
	"PRIMARY":           KeywordPrimary,
	"REFERENCES":        KeywordReferences,
	"RETURNING":         KeywordReturning,
	"SELECT":            KeywordSelect,
	"SESSION_USER":      KeywordSessionUser,
	"SOME":              KeywordSome,
	"SYMMETRIC":         KeywordSymmetric,
	"TABLE":             KeywordTable,
	"THEN":               KeywordThen,
	"TO":                KeywordTo,
	"TRAILING":          KeywordTrailing,
	"TRUE":              KeywordTrue,
	"UNION":             KeywordUnion,
	"UNIQUE":            KeywordUnique,
	"USER":              KeywordUser,
	"USING":             KeywordUsing,
	"VARIADIC":          KeywordVariadic,
	"WHEN":              KeywordWhen,
	"WHERE":             KeywordWhere,
	"WINDOW":            KeywordWindow,
	"WITH":              KeywordWith,

	"BEGIN":          KeywordBegin,
	"COMMIT":         KeywordCommit,
	"ROLLBACK":       KeywordRollback,
	"START":          KeywordStart,
	"TRANSACTION":    KeywordTransaction,
	"SAVEPOINT":      KeywordSavepoint,
	"RELEASE":        KeywordRelease,
	"INSERT":         KeywordInsert,
	"UPDATE":         KeywordUpdate,
	"DELETE":         KeywordDelete,
	"VALUES":         KeywordValues,
	"SET":            KeywordSet,
	"DROP":           KeywordDrop,
	"ALTER":          KeywordAlter,
	"TRUNCATE":       KeywordTruncate,
	"EXPLAIN":        KeywordExplain,
	"PREPARE":        KeywordPrepare,
	"EXECUTE":        KeywordExecute,
	"DEALLOCATE":     KeywordDeallocate,
	"DECLARE":        KeywordDeclare,
	"CURSOR":         KeywordCursor,
	"COPY":           KeywordCopy,
	"IF":             KeywordIf,
	"EXISTS":         KeywordExists,
	"INDEX":          KeywordIndex,
	"VIEW":           KeywordView,
	"SCHEMA":         KeywordSchema,
	"DATABASE":       KeywordDatabase,
	"SEQUENCE":       KeywordSequence,
	"FUNCTION":       KeywordFunction,
	"TRIGGER":        KeywordTrigger,
	"EXTENSION":      KeywordExtension,
	"TYPE":           KeywordType,
	"DOMAIN":         KeywordDomain,
	"LIKE":           KeywordLike,
	"ILIKE":          KeywordIlike,
	"BETWEEN":        KeywordBetween,
	"IS":             KeywordIs,
	"JOIN":           KeywordJoin,
	"INNER":          KeywordInner,
	"OUTER":          KeywordOuter,
	"LEFT":           KeywordLeft,
	"RIGHT":          KeywordRight,
	"FULL":           KeywordFull,
	"BY":             KeywordBy,
	"CONFLICT":       KeywordConflict,
	"NOTHING":        KeywordNothing,
	"RECURSIVE":      KeywordRecursive,
	"OVER":           KeywordOver,
	"PARTITION":      KeywordPartition,
	"FILTER":         KeywordFilter,
	"FIRST":          KeywordFirst,
	"LAST":           KeywordLast,
	"NULLS":          KeywordNulls,
	"NEXT":           KeywordNext,
	"CASCADE":        KeywordCascade,
	"RESTRICT":       KeywordRestrict,
	"REVOKE":         KeywordRevoke,
}

var keywordNames = func() map[Keyword]string {
	m := make(map[Keyword]string, len(keywords))
	for name, kw := range keywords {
		m[kw] = name
	}
	return m
}()

func (k Keyword) String() string {
	if name, ok := keywordNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// LookupKeyword returns the Keyword for an uppercased identifier spelling
// and whether it was found. Callers are responsible for folding case before
// calling this, since SQL keywords are case-insensitive.
func LookupKeyword(upper string) (Keyword, bool) {
	kw, ok := keywords[upper]
	return kw, ok
}

var reserved = map[Keyword]bool{
	KeywordAll: true, KeywordAnalyse: true, KeywordAnalyze: true, KeywordAnd: true,
	KeywordAny: true, KeywordArray: true, KeywordAs: true, KeywordAsc: true,
	KeywordAsymmetric: true, KeywordBoth: true, KeywordCase: true, KeywordCast: true,
	KeywordCheck: true, KeywordCollate: true, KeywordColumn: true, KeywordConstraint: true,
	KeywordCreate: true, KeywordCurrentCatalog: true, KeywordCurrentDate: true,
	KeywordCurrentRole: true, KeywordCurrentTime: true, KeywordCurrentTimestamp: true,
	KeywordCurrentUser: true, KeywordDefault: true, KeywordDeferrable: true, KeywordDesc: true,
	KeywordDistinct: true, KeywordDo: true, KeywordElse: true, KeywordEnd: true,
	KeywordExcept: true, KeywordFalse: true, KeywordFetch: true, KeywordFor: true,
	KeywordForeign: true, KeywordFrom: true, KeywordGrant: true, KeywordGroup: true,
	KeywordHaving: true, KeywordIn: true, KeywordInitially: true, KeywordIntersect: true,
	KeywordInto: true, KeywordLateral: true, KeywordLeading: true, KeywordLimit: true,
	KeywordLocaltime: true, KeywordLocaltimestamp: true, KeywordNot: true, KeywordNull: true,
	KeywordOffset: true, KeywordOn: true, KeywordOnly: true, KeywordOr: true,
	KeywordOrder: true, KeywordPlacing: true, KeywordPrimary: true, KeywordReferences: true,
	KeywordReturning: true, KeywordSelect: true, KeywordSessionUser: true, KeywordSome: true,
	KeywordSymmetric: true, KeywordTable: true, KeywordThen: true, KeywordTo: true,
	KeywordTrailing: true, KeywordTrue: true, KeywordUnion: true, KeywordUnique: true,
	KeywordUser: true, KeywordUsing: true, KeywordVariadic: true, KeywordWhen: true,
	KeywordWhere: true, KeywordWindow: true, KeywordWith: true,
}

// Reserved reports whether k is in the PostgreSQL-standard reserved-keyword
// subset. Reserved keywords can never be used as a bare identifier, which
// the tautology detector in internal/detect relies on: an identifier or
// non-reserved keyword followed by something other than `(` breaks a
// tautology match, since it must be a column reference rather than a
// function call or literal.
func Reserved(k Keyword) bool {
	return reserved[k]
}
