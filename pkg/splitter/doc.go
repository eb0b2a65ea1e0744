// Package splitter implements the splitter/combiner algebra: parsing a splitter expression into reverse-polish form, classifying its
// leaves into input axes, and two rewrites of a parsed RPN — namespace
// qualification (PrependNamespace), and combiner application when chosen
// axes are eliminated before reaching the next node.
//
// Two operators only: scalar product "." (zip — operands must share length)
// and outer product "×" (Cartesian product). "×" binds looser than ".";
// parentheses override either. A parenthesised comma list, "(a, b)", is
// sugar for the scalar product "a.b" grouped as a single operand, so
// "(a, b) × c" is the outer of the scalar pair (a,b) with c.
//
// Parse operates purely on unqualified local field names — a splitter is
// always authored against a node's own inputs. Namespace qualification
// ("node.field") is applied programmatically to an already-parsed RPN value
// via PrependNamespace; pkg/workflow's splitter inheritance does not call
// it and copies the unqualified expression. Qualification is never part of
// the surface grammar Parse accepts,
// which avoids the "is this dot an operator or a qualifier" ambiguity a
// grammar mixing both would otherwise have to resolve.
package splitter
