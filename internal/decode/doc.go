/*
Package decode builds an immutable decoder tree from a declarative instruction
table and uses it to map a fetched instruction word to the [Declaration] that
describes its semantics.

The table format is plain text, one declaration per line:

	field NAME BITS[|POST]
	inst NAME ["DISPLAY"] | BITPATTERN | ARGS
	illegal | BITPATTERN
	nop | BITPATTERN

A field line names a bit-slice extractor: BITS is a whitespace-separated list
of tokens of the form "[s]MSB[:LSB][@DSTLSB]"; each token copies instruction
bits MSB down to LSB into the destination field starting at bit DSTLSB
(defaulting to the next unused destination bit), and tokens OR together.
The leading "s" marks the token holding the result's sign bit; the field
is sign-extended from there. POST, if given, names a post-processing step
("add_8" adds 8 to a 3-bit compressed register index, yielding x8-x15).

An inst line's BITPATTERN has one character per instruction bit (32 or 16
characters): '0'/'1' are literal bits that become part of the match mask,
'*' is a don't-care bit excluded from the mask, and '.' is an argument bit,
also excluded from the mask, whose value is supplied by one of the fields
named in ARGS. ARGS is a whitespace-separated list of "name" (an argument
bound to the identically-named field), "name=field" (bound to a
differently-named field), or "name=integer" (a fixed operand, not read from
the instruction word at all).

Construction happens once, at startup, via [Build]; the resulting [*Node] is
never mutated and is safe to share across goroutines for read-only [Query]
calls.
*/
package decode
